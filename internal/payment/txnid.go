package payment

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewTxnID returns "TXN_<unix millis><8 hex>". The random suffix keeps ids unique
// across donations started in the same millisecond.
func NewTxnID(now time.Time) string {
	u := uuid.New()
	return "TXN_" + strconv.FormatInt(now.UnixMilli(), 10) + hex.EncodeToString(u[:4])
}

// FormatAmount renders an amount in the smallest currency unit the way it is
// sent to, and echoed back by, the gateway.
func FormatAmount(amount int64) string { return strconv.FormatInt(amount, 10) }
