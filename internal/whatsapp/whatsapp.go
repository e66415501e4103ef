// Package whatsapp builds the site's WhatsApp enquiry deep links and the
// prefilled messages behind the contact, pricing and test-result buttons.
package whatsapp

import (
	"fmt"
	"net/url"
)

type Builder struct {
	phone string
}

func New(phone string) *Builder {
	return &Builder{phone: phone}
}

// Link returns a WhatsApp send URL with the message prefilled.
func (b *Builder) Link(message string) string {
	return fmt.Sprintf(
		"https://api.whatsapp.com/send/?phone=%s&text=%s&type=phone_number&app_absent=0",
		b.phone, url.QueryEscape(message),
	)
}

// The prefilled enquiry texts, in Russian and Kazakh like the rest of the
// site. Unknown languages fall back to Russian.

func General(lang string) string {
	if lang == "kk" {
		return "Сәлеметсіз бе!\n\nМен сізге InvestInKids сайтынан жазып отырмын\n\n"
	}
	return "Здравствуйте!\n\nЯ пишу вам с сайта InvestInKids\n\n"
}

func TestResult(lang string, score, total int, level string) string {
	if lang == "kk" {
		return fmt.Sprintf("Сәлеметсіз бе!\n\nМен сіздің сайтыңызда тест тапсырдым.\n\nНәтиже: %d/%d ұпай\nДеңгей: %s\n\nМен сынақ сабаққа жазылғым келеді.\n\n", score, total, level)
	}
	return fmt.Sprintf("Здравствуйте!\n\nЯ прошел тест на вашем сайте.\n\nРезультат: %d/%d баллов\nУровень: %s\n\nЯ хочу записаться на пробный урок.\n\n", score, total, level)
}

func Course(lang, courseName string) string {
	if lang == "kk" {
		return fmt.Sprintf("Сәлеметсіз бе!\n\nМен сізге %s туралы сайттан жазып отырмын\n\n", courseName)
	}
	return fmt.Sprintf("Здравствуйте!\n\nЯ пишу вам по поводу %s с сайта\n\n", courseName)
}

func Pricing(lang, planName string) string {
	if lang == "kk" {
		return fmt.Sprintf("Сәлеметсіз бе!\n\nМен %q тарифіне қызығушылық танытамын\n\n", planName)
	}
	return fmt.Sprintf("Здравствуйте!\n\nЯ интересуюсь тарифом %q с сайта\n\n", planName)
}

func Contact(lang string) string {
	if lang == "kk" {
		return "Сәлеметсіз бе!\n\nМен оқу туралы сізбен байланысқа шығуға қызығушылық танытамын\n\n"
	}
	return "Здравствуйте!\n\nЯ хочу связаться с вами по поводу обучения\n\n"
}
