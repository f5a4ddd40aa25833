package types

type ProviderType int32

const (
	ProviderTypeUnspecified ProviderType = 0
	ProviderTypeMoMo        ProviderType = 1
	ProviderTypeVNPay       ProviderType = 2
	ProviderTypeZaloPay     ProviderType = 3
)

func (p ProviderType) String() string {
	switch p {
	case ProviderTypeMoMo:
		return "momo"
	case ProviderTypeVNPay:
		return "vnpay"
	case ProviderTypeZaloPay:
		return "zalopay"
	default:
		return "unspecified"
	}
}
