// Package payment implements the hosted-checkout contract: SHA-512 request and
// response hashes, transaction ids and the outbound session descriptor.
//
// The field order of both hashes is fixed by the gateway and must not change.
package payment

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// udfSlots is the number of user-defined fields the gateway carries back.
const udfSlots = 5

// reservedSlots are the empty positions between udf5 and the secret.
const reservedSlots = 5

// RequestFields are the values covered by the outbound hash.
type RequestFields struct {
	TxnID       string
	Amount      string
	ProductInfo string
	FirstName   string
	Email       string
	UDF         [udfSlots]string
}

// ResponseFields are the values the gateway posts back to the callback URLs.
type ResponseFields struct {
	Status            string
	TxnID             string
	Amount            string
	ProductInfo       string
	FirstName         string
	Email             string
	UDF               [udfSlots]string
	AdditionalCharges string
	Hash              string
}

// ComputeRequestHash returns the lower-case hex SHA-512 of
// key|txnid|amount|productinfo|firstname|email|udf1..udf5|<5 empty>|secret.
func ComputeRequestHash(merchantKey, secret string, f RequestFields) string {
	parts := make([]string, 0, 6+udfSlots+reservedSlots+1)
	parts = append(parts, merchantKey, f.TxnID, f.Amount, f.ProductInfo, f.FirstName, f.Email)
	parts = append(parts, f.UDF[:]...)
	for i := 0; i < reservedSlots; i++ {
		parts = append(parts, "")
	}
	parts = append(parts, secret)
	return digest(parts)
}

// ComputeResponseHash mirrors the request layout in reverse, with status after the
// secret: [additionalCharges|]secret|status|<5 empty>|udf5..udf1|email|firstname|productinfo|amount|txnid|key.
func ComputeResponseHash(merchantKey, secret string, f ResponseFields) string {
	parts := make([]string, 0, 3+reservedSlots+udfSlots+6)
	if f.AdditionalCharges != "" {
		parts = append(parts, f.AdditionalCharges)
	}
	parts = append(parts, secret, f.Status)
	for i := 0; i < reservedSlots; i++ {
		parts = append(parts, "")
	}
	for i := udfSlots - 1; i >= 0; i-- {
		parts = append(parts, f.UDF[i])
	}
	parts = append(parts, f.Email, f.FirstName, f.ProductInfo, f.Amount, f.TxnID, merchantKey)
	return digest(parts)
}

// VerifyResponseHash recomputes the response hash and compares it with f.Hash in
// constant time. Hex case is ignored.
func VerifyResponseHash(merchantKey, secret string, f ResponseFields) bool {
	got := strings.ToLower(strings.TrimSpace(f.Hash))
	if len(got) != sha512.Size*2 {
		return false
	}
	want := ComputeResponseHash(merchantKey, secret, f)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func digest(parts []string) string {
	sum := sha512.Sum512([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
