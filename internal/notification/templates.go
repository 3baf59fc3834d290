package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

const layout = `<div dir="rtl" style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1e40af;">{{.Heading}}</h2>
  {{if .Greeting}}<p>{{.Greeting}}</p>{{end}}
  {{range .Paragraphs}}<p>{{.}}</p>
  {{end}}{{if .Bullets}}<ul>
  {{range .Bullets}}<li>{{.}}</li>
  {{end}}</ul>{{end}}
  {{if .Facts}}<div style="background: #f3f4f6; padding: 15px; border-radius: 5px; margin: 20px 0;">
  {{range .Facts}}<p><strong>{{.Label}}:</strong> {{.Value}}</p>
  {{end}}</div>{{end}}
  {{if .Footer}}<p>{{.Footer}}</p>{{end}}
  <p style="margin-top: 30px;">مع تحيات،<br/>فريق معاملتي</p>
</div>`

var emailLayout = template.Must(template.New("email").Parse(layout))

type fact struct {
	Label string
	Value string
}

type emailView struct {
	Heading    string
	Greeting   string
	Paragraphs []string
	Bullets    []string
	Facts      []fact
	Footer     string
}

// Email is a rendered message ready for the outbox.
type Email struct {
	Subject string
	HTML    string
}

func render(subject string, v emailView) (*Email, error) {
	var b bytes.Buffer
	if err := emailLayout.Execute(&b, v); err != nil {
		return nil, fmt.Errorf("render %q: %w", subject, err)
	}
	return &Email{Subject: subject, HTML: b.String()}, nil
}

func WelcomeEmail(fullName string) (*Email, error) {
	const subject = "مرحباً بك في منصة معاملتي"
	return render(subject, emailView{
		Heading: "مرحباً " + fullName,
		Paragraphs: []string{
			"نشكرك على التسجيل في منصة معاملتي.",
			"منصتنا تساعدك على إدارة ومتابعة معاملاتك الحكومية بكل سهولة.",
			"يمكنك الآن:",
		},
		Bullets: []string{
			"رفع المعاملات الجديدة",
			"متابعة حالة معاملاتك",
			"الحصول على استشارات قانونية",
			"التواصل مع الدوائر الحكومية",
		},
	})
}

// StatusEmail renders the citizen email for a status. ok is false for statuses that send no mail.
func StatusEmail(status, statusLabel, fullName, trackingNumber, typeName, rejectionReason string) (email *Email, ok bool, err error) {
	var subject, message string
	switch status {
	case "submitted":
		subject = "تم استلام معاملتك"
		message = fmt.Sprintf("تم استلام معاملتك \"%s\" بنجاح. رقم المتابعة: %s", typeName, trackingNumber)
	case "under_review":
		subject = "معاملتك قيد المراجعة"
		message = fmt.Sprintf("معاملتك \"%s\" قيد المراجعة من قبل الدائرة المختصة.", typeName)
	case "approved":
		subject = "تمت الموافقة على معاملتك"
		message = fmt.Sprintf("تمت الموافقة على معاملتك \"%s\". يمكنك متابعة الإجراءات النهائية.", typeName)
	case "rejected":
		subject = "تم رفض معاملتك"
		message = fmt.Sprintf("تم رفض معاملتك \"%s\". السبب: %s", typeName, rejectionReason)
	case "completed":
		subject = "اكتملت معاملتك"
		message = fmt.Sprintf("اكتملت معاملتك \"%s\" بنجاح!", typeName)
	default:
		return nil, false, nil
	}

	email, err = render(subject, emailView{
		Heading:    subject,
		Greeting:   fmt.Sprintf("عزيزي %s،", fullName),
		Paragraphs: []string{message},
		Facts: []fact{
			{Label: "رقم المتابعة", Value: trackingNumber},
			{Label: "نوع المعاملة", Value: typeName},
			{Label: "الحالة", Value: statusLabel},
		},
		Footer: "يمكنك متابعة تفاصيل معاملتك من خلال لوحة التحكم.",
	})
	if err != nil {
		return nil, false, err
	}
	return email, true, nil
}
