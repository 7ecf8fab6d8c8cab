package enums

import "fmt"

// PaymentGateway identifies which processor took the payment.
type PaymentGateway string

const (
	PaymentGatewayAzul     PaymentGateway = "azul"
	PaymentGatewayVerifone PaymentGateway = "verifone"
)

var validPaymentGateways = []PaymentGateway{
	PaymentGatewayAzul,
	PaymentGatewayVerifone,
}

// String implements fmt.Stringer.
func (p PaymentGateway) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentGateway.
func (p PaymentGateway) IsValid() bool {
	for _, candidate := range validPaymentGateways {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentGateway converts the raw string to PaymentGateway.
func ParsePaymentGateway(value string) (PaymentGateway, error) {
	for _, candidate := range validPaymentGateways {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway %q", value)
}
