package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/model"
)

// TemplateData is everything a reminder email is parameterized by.
type TemplateData struct {
	ObjectiveText string
	Percent       int
	// Days is the absolute day count: days left, or days overdue.
	Days    int
	AppName string
}

type variant struct {
	subject  string
	color    string
	panel    string
	icon     string
	title    string
	subtitle string
	callout  string
	footer   string
}

var variants = map[model.Category]variant{
	model.CategoryDueToday: {
		subject:  "🚨 ¡Tu objetivo vence HOY!",
		color:    "#e53935",
		panel:    "#e3f2fd",
		icon:     "📋",
		title:    "🚨 ¡URGENTE!",
		subtitle: "Tu objetivo vence HOY",
		callout:  "⏰ ¡Es tu última oportunidad para terminarlo!",
	},
	model.CategoryDueTomorrow: {
		subject:  "⚡ Tu objetivo vence MAÑANA",
		color:    "#ff9800",
		panel:    "#e3f2fd",
		icon:     "📋",
		title:    "⚡ ¡Atención!",
		subtitle: "Tu objetivo vence MAÑANA",
		callout:  "📅 Te queda 1 día para completarlo",
	},
	model.CategoryThreeDayReminder: {
		subject:  "📍 Recordatorio: Te quedan 3 días",
		color:    "#1976d2",
		panel:    "#e3f2fd",
		icon:     "📋",
		title:    "📍 Recordatorio",
		subtitle: "Te quedan {{.Days}} días",
		callout:  "⏳ Todavía tienes tiempo, ¡sigue así!",
	},
	model.CategoryOverdueWeekly: {
		subject:  "⏰ Objetivo vencido - ¿Necesitas ayuda?",
		color:    "#d32f2f",
		panel:    "#e3f2fd",
		icon:     "📋",
		title:    "⏰ Objetivo Vencido",
		subtitle: "Hace {{.Days}} días",
		callout:  "¿Necesitas extender la fecha límite o ajustar el objetivo?",
	},
	model.CategoryCompleted: {
		subject:  "🎉 ¡Felicidades! Objetivo completado",
		color:    "#43a047",
		panel:    "#e8f5e8",
		icon:     "✅",
		title:    "🎉 ¡FELICIDADES!",
		subtitle: "¡Has completado tu objetivo!",
		callout:  "🏆 ¡100% COMPLETADO! 🏆",
		footer:   "🚀 Sigue así con tus próximos objetivos",
	},
}

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: {{.V.Color}}; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0;">
    <h1 style="margin: 0;">{{.V.Title}}</h1>
    <h2 style="margin: 10px 0 0 0;">{{.Subtitle}}</h2>
  </div>
  <div style="background: #f5f5f5; padding: 20px; border-radius: 0 0 8px 8px;">
    <h3 style="color: #333; margin-top: 0;">{{.V.Icon}} {{.D.ObjectiveText}}</h3>
    {{- if .Completed}}
    <p style="font-size: 16px; color: #666; text-align: center;">¡Excelente trabajo! Has demostrado dedicación y perseverancia. 💪</p>
    {{- else}}
    <p style="font-size: 16px; color: #666;"><strong>Progreso actual:</strong> {{.D.Percent}}% completado</p>
    {{- end}}
    <p style="color: {{.V.Color}}; font-weight: bold; font-size: 16px;">{{.V.Callout}}</p>
    <div style="text-align: center; margin: 30px 0; padding: 15px; background: {{.V.Panel}}; border-radius: 5px;">
      <p style="color: {{.V.Color}}; font-weight: bold; margin: 0;">{{.V.Footer}}</p>
    </div>
  </div>
</div>
`

var (
	layoutTmpl = template.Must(template.New("layout").Parse(layout))
	subtitles  = map[model.Category]*template.Template{}
)

func init() {
	for c, v := range variants {
		subtitles[c] = template.Must(template.New(string(c)).Parse(v.subtitle))
	}
}

// view is what the layout sees. Fields are exported for html/template.
type view struct {
	V struct {
		Color, Panel, Icon, Title, Callout, Footer string
	}
	D         TemplateData
	Subtitle  string
	Completed bool
}

// Render produces the subject and HTML body for a category.
// It fails for NoAction and for unknown categories.
func Render(category model.Category, data TemplateData) (subject, html string, err error) {
	v, ok := variants[category]
	if !ok {
		return "", "", fmt.Errorf("render %q: %w", category, errors.ErrInvalidCategory)
	}
	if data.AppName == "" {
		data.AppName = "Imparable"
	}

	var sub bytes.Buffer
	if err := subtitles[category].Execute(&sub, data); err != nil {
		return "", "", fmt.Errorf("render %s subtitle: %w", category, err)
	}

	vw := view{D: data, Subtitle: sub.String(), Completed: category == model.CategoryCompleted}
	vw.V.Color = v.color
	vw.V.Panel = v.panel
	vw.V.Icon = v.icon
	vw.V.Title = v.title
	vw.V.Callout = v.callout
	vw.V.Footer = v.footer
	if vw.V.Footer == "" {
		vw.V.Footer = "🎯 Revisa tu objetivo en la aplicación " + data.AppName
	}

	var body bytes.Buffer
	if err := layoutTmpl.Execute(&body, vw); err != nil {
		return "", "", fmt.Errorf("render %s: %w", category, err)
	}
	return v.subject, body.String(), nil
}
