package signature

import (
	"net/url"
	"sort"
	"strings"
)

// VNPay hashes the request parameters sorted lexicographically by key,
// dropping empty values and the vnp_SecureHash/vnp_SecureHashType
// meta-fields, with each value form-encoded (space becomes '+') exactly as
// it appears in the redirect URL. HMAC-SHA-512.

const (
	vnpSecureHashField     = "vnp_SecureHash"
	vnpSecureHashTypeField = "vnp_SecureHashType"
)

// VNPayHashData builds the canonical string signed by both sides.
func VNPayHashData(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" || k == vnpSecureHashField || k == vnpSecureHashTypeField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+url.QueryEscape(params[k]))
	}
	return strings.Join(parts, "&")
}

func SignVNPay(params map[string]string, hashSecret string) string {
	return hmacSHA512Hex(VNPayHashData(params), hashSecret)
}

func VerifyVNPay(params map[string]string, hashSecret, expectedTag string) bool {
	return tagsEqual(SignVNPay(params, hashSecret), expectedTag)
}
