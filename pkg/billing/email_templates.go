package billing

import "fmt"

// buildSubscriptionActivatedEmail returns the email content for a newly activated plan.
func buildSubscriptionActivatedEmail(userName, planName string, features []string, baseURL string) (subject, html, plainText string) {
	subject = fmt.Sprintf("Your RivalScope %s plan is active", planName)

	htmlItems := ""
	plainItems := ""
	for _, f := range features {
		htmlItems += fmt.Sprintf("<li>%s</li>", featureLabel(f))
		plainItems += fmt.Sprintf("- %s\n", featureLabel(f))
	}

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Plan activated!</h2>
			<p>Hi %s,</p>
			<p>Your <strong>%s</strong> plan is now active. It includes:</p>
			<ul>%s</ul>
			<p><a href="%s/dashboard" style="background-color: #4CAF50; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Start a research</a></p>
			<p>Thanks,<br>The RivalScope Team</p>
		</body>
		</html>
	`, userName, planName, htmlItems, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

Your %s plan is now active. It includes:

%s
Start a research: %s/dashboard

Thanks,
The RivalScope Team
`, userName, planName, plainItems, baseURL)

	return
}

// buildSubscriptionCancelledEmail returns the email content for a cancelled plan.
func buildSubscriptionCancelledEmail(userName, baseURL string) (subject, html, plainText string) {
	subject = "Your RivalScope subscription has been cancelled"

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Subscription cancelled</h2>
			<p>Hi %s,</p>
			<p>Your subscription has been cancelled and your account is back on the Free plan.</p>
			<p>Your researches and reports stay available. New researches count against the Free monthly limit.</p>
			<p><a href="%s/pricing" style="background-color: #2196F3; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">See plans</a></p>
			<p>Thanks,<br>The RivalScope Team</p>
		</body>
		</html>
	`, userName, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

Your subscription has been cancelled and your account is back on the Free plan.

Your researches and reports stay available. New researches count against the Free monthly limit.

See plans: %s/pricing

Thanks,
The RivalScope Team
`, userName, baseURL)

	return
}

// buildPaymentFailedEmail returns the email content for a subscription that fell past due.
func buildPaymentFailedEmail(userName, baseURL string) (subject, html, plainText string) {
	subject = "Action required: your RivalScope payment failed"

	html = fmt.Sprintf(`
		<html>
		<body>
			<h2>Payment failed</h2>
			<p>Hi %s,</p>
			<p>We could not charge your payment method for your RivalScope subscription.</p>
			<p>Please update your payment method to keep your plan:</p>
			<p><a href="%s/settings/billing" style="background-color: #F44336; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Update payment method</a></p>
			<p>Thanks,<br>The RivalScope Team</p>
		</body>
		</html>
	`, userName, baseURL)

	plainText = fmt.Sprintf(`Hi %s,

We could not charge your payment method for your RivalScope subscription.

Please update your payment method to keep your plan: %s/settings/billing

Thanks,
The RivalScope Team
`, userName, baseURL)

	return
}

var featureLabels = map[string]string{
	"basic_analysis":     "Basic competitor analysis",
	"simple_reports":     "Simple reports",
	"email_support":      "Email support",
	"advanced_analysis":  "Advanced competitor analysis",
	"detailed_reports":   "Detailed reports",
	"pdf_export":         "Report export",
	"priority_support":   "Priority support",
	"premium_analysis":   "Premium analysis",
	"customized_reports": "Customized reports",
	"integrations":       "Integrations",
	"team_management":    "Team management",
	"24_7_support":       "24/7 support",
}

func featureLabel(f string) string {
	if l, ok := featureLabels[f]; ok {
		return l
	}
	return f
}
