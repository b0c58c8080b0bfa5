// Package cli asks the prediction form in a terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"hdb-predictor/backend/internal/features/catalog/application"
	catalogdomain "hdb-predictor/backend/internal/features/catalog/domain"
	configapp "hdb-predictor/backend/internal/features/config/application"
	predictionapp "hdb-predictor/backend/internal/features/prediction/application"
	"hdb-predictor/backend/internal/features/prediction/domain"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts the prompts.
var ErrAborted = errors.New("prompt aborted")

// InputConfig configures a free text prompt.
type InputConfig struct {
	Message   string
	Default   string
	Help      string
	Validator func(string) error
}

// SelectConfig configures a single choice prompt.
type SelectConfig struct {
	Message      string
	Options      []string
	DefaultIndex int
	PageSize     int
}

// PromptDriver abstracts the terminal so the form flow can be tested.
type PromptDriver interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Select(ctx context.Context, cfg SelectConfig) (int, error)
}

// Asker walks the form field by field and makes one prediction.
type Asker struct {
	forms   configapp.FormConfigService
	service predictionapp.PredictionService
	driver  PromptDriver
	out     io.Writer
}

// NewAsker creates an Asker. A nil driver selects the survey terminal driver.
func NewAsker(forms configapp.FormConfigService, service predictionapp.PredictionService, driver PromptDriver, out io.Writer) *Asker {
	if driver == nil {
		driver = surveyDriver{}
	}
	return &Asker{forms: forms, service: service, driver: driver, out: out}
}

// Run asks every field and group, prints the formatted prediction and returns it.
func (a *Asker) Run(ctx context.Context) (*domain.Prediction, error) {
	form := a.forms.Form()
	req := &domain.PredictionRequest{
		Answers:    make(map[string]any, len(form.Fields)),
		Selections: make(map[string]string, len(form.Groups)),
	}

	for _, f := range form.Fields {
		value, err := a.askField(ctx, f.Field)
		if err != nil {
			return nil, err
		}
		req.Answers[f.Column] = value
	}

	for _, g := range form.Groups {
		idx, err := a.driver.Select(ctx, SelectConfig{
			Message:      application.PlainPrompt(g.Prompt),
			Options:      g.Categories,
			DefaultIndex: indexOf(g.Categories, g.Default),
			PageSize:     15,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(g.Categories) {
			return nil, fmt.Errorf("no %s selected", g.Name)
		}
		req.Selections[g.Name] = g.Categories[idx]
	}

	prediction, err := a.service.Predict(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(a.out, "The predicted value is: %s\n", prediction.Formatted); err != nil {
		return nil, err
	}
	return prediction, nil
}

func (a *Asker) askField(ctx context.Context, f catalogdomain.Field) (float64, error) {
	message := application.PlainPrompt(f.Prompt)

	switch f.Kind {
	case catalogdomain.KindBinary, catalogdomain.KindChoice:
		labels, values := choices(f)
		def := 0
		for i, v := range values {
			if v == f.Default {
				def = i
			}
		}
		idx, err := a.driver.Select(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: def})
		if err != nil {
			return 0, err
		}
		if idx < 0 || idx >= len(values) {
			return 0, fmt.Errorf("no option selected for %s", f.Column)
		}
		return values[idx], nil
	default:
		text, err := a.driver.Input(ctx, InputConfig{
			Message: message,
			Default: catalogdomain.FormatNumber(f.Default),
			Help:    fmt.Sprintf("Between %s and %s", catalogdomain.FormatNumber(f.Min), catalogdomain.FormatNumber(f.Max)),
			Validator: func(s string) error {
				v, err := f.Parse(s)
				if err != nil {
					return err
				}
				return f.Validate(v)
			},
		})
		if err != nil {
			return 0, err
		}
		v, err := f.Parse(text)
		if err != nil {
			return 0, err
		}
		return v, f.Validate(v)
	}
}

func choices(f catalogdomain.Field) ([]string, []float64) {
	if f.Kind == catalogdomain.KindBinary {
		return []string{"Yes", "No"}, []float64{1, 0}
	}
	labels := make([]string, len(f.Options))
	values := make([]float64, len(f.Options))
	for i, o := range f.Options {
		labels[i] = o.Label
		values[i] = o.Value
	}
	return labels, values
}

func indexOf(options []string, value string) int {
	for i, option := range options {
		if option == value {
			return i
		}
	}
	return 0
}

type surveyDriver struct{}

func (surveyDriver) Input(ctx context.Context, cfg InputConfig) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var out string
	prompt := &survey.Input{
		Message: cfg.Message,
		Help:    cfg.Help,
		Default: cfg.Default,
	}
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return cfg.Validator(s)
		}))
	}
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyDriver) Select(ctx context.Context, cfg SelectConfig) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var out string
	prompt := &survey.Select{
		Message: cfg.Message,
		Options: cfg.Options,
	}
	if cfg.PageSize > 0 {
		prompt.PageSize = cfg.PageSize
	}
	if cfg.DefaultIndex >= 0 && cfg.DefaultIndex < len(cfg.Options) {
		prompt.Default = cfg.Options[cfg.DefaultIndex]
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return 0, translateSurveyErr(err)
	}
	for i, option := range cfg.Options {
		if option == out {
			return i, nil
		}
	}
	return -1, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
