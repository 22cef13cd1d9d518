package paypal

import "time"

// Config holds processor credentials and endpoints. Loaded from the
// environment; the client id and secret are never logged.
type Config struct {
	BaseURL      string        `env:"PAYPAL_BASE_URL" envDefault:"https://api-m.paypal.com"`
	ClientID     string        `env:"PAYPAL_CLIENT_ID,required"`
	ClientSecret string        `env:"PAYPAL_CLIENT_SECRET,required"`
	WebhookID    string        `env:"PAYPAL_WEBHOOK_ID,required"`
	ReturnURL    string        `env:"PAYPAL_RETURN_URL,required"`
	CancelURL    string        `env:"PAYPAL_CANCEL_URL,required"`
	HTTPTimeout  time.Duration `env:"PAYPAL_HTTP_TIMEOUT" envDefault:"10s"`
	CertCacheTTL time.Duration `env:"PAYPAL_CERT_CACHE_TTL" envDefault:"12h"`
}
