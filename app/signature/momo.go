package signature

import "strings"

// MoMo signs the raw concatenation "k1=v1&k2=v2&..." of a fixed,
// provider-defined field list with HMAC-SHA-256. Order creation and IPN
// verification cover different field lists; both are encoded as explicit
// ordered slices by the caller.

func momoRaw(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+"="+f.Value)
	}
	return strings.Join(parts, "&")
}

func SignMoMo(fields []Field, secretKey string) string {
	return hmacSHA256Hex(momoRaw(fields), secretKey)
}

func VerifyMoMo(fields []Field, secretKey, expectedTag string) bool {
	return tagsEqual(SignMoMo(fields, secretKey), expectedTag)
}
