package user

import (
	"net/mail"
	texttmpl "text/template"

	"github.com/trezcool/elimu/core"
)

var welcomeTmpl = texttmpl.Must(texttmpl.New("welcome").Parse(`Hello {{.Name}},

Your {{.Role}} account "{{.Username}}" is ready. You can now log in with your email address.

See you in class!
`))

type welcomeData struct {
	Name     string
	Username string
	Role     string
}

func welcomeMessage(usr User, firstName string, role Role) *core.EmailMessage {
	name := firstName
	if name == "" {
		name = usr.Username
	}
	return &core.EmailMessage{
		To:       []mail.Address{{Name: name, Address: usr.Email}},
		Subject:  "Welcome!",
		Template: welcomeTmpl,
		TemplateData: welcomeData{
			Name:     name,
			Username: usr.Username,
			Role:     string(role),
		},
	}
}
