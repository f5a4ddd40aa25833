package signature

import "strings"

// ZaloPay order creation signs seven fields pipe-joined in a fixed order
// with key1. Callback verification signs the raw data string of the
// {data, mac} envelope with key2. Both are HMAC-SHA-256.

type ZaloPayOrder struct {
	AppID      string
	AppTransID string
	AppUser    string
	Amount     string
	AppTime    string
	EmbedData  string
	Item       string
}

func SignZaloPayOrder(order ZaloPayOrder, key1 string) string {
	data := strings.Join([]string{
		order.AppID,
		order.AppTransID,
		order.AppUser,
		order.Amount,
		order.AppTime,
		order.EmbedData,
		order.Item,
	}, "|")
	return hmacSHA256Hex(data, key1)
}

func SignZaloPayCallback(data, key2 string) string {
	return hmacSHA256Hex(data, key2)
}

func VerifyZaloPayCallback(data, key2, expectedMAC string) bool {
	return tagsEqual(SignZaloPayCallback(data, key2), expectedMAC)
}
