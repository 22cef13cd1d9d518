package billing

type Config struct {
	DefaultPlanID    string `env:"BILLING_DEFAULT_PLAN" envDefault:"trial-monthly"` // DefaultPlanID is used when the subscribe request names no plan.
	AfterApprovalURL string `env:"BILLING_AFTER_APPROVAL_URL" envDefault:"/"`       // AfterApprovalURL is where the browser lands after the processor's return redirect.
	AfterCancelURL   string `env:"BILLING_AFTER_CANCEL_URL" envDefault:"/"`         // AfterCancelURL is where the browser lands after the processor's cancel redirect.
	MaxWebhookBody   int64  `env:"BILLING_MAX_WEBHOOK_BODY" envDefault:"1048576"`   // MaxWebhookBody bounds the accepted webhook payload size in bytes.
}
