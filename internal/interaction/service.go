/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package interaction

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/dotnet/aspire-sub011/internal/rpc"
)

// Method names of the server-exposed interaction surface.
const (
	MethodShowStatus            = "showStatus"
	MethodPromptForString       = "promptForString"
	MethodPromptForSecretString = "promptForSecretString"
	MethodConfirm               = "confirm"
	MethodPromptForSelection    = "promptForSelection"
	MethodDisplayError          = "displayError"
	MethodDisplayMessage        = "displayMessage"
	MethodDisplaySuccess        = "displaySuccess"
	MethodDisplaySubtleMessage  = "displaySubtleMessage"
	MethodDisplayEmptyLine      = "displayEmptyLine"
	MethodDisplayLines          = "displayLines"
	MethodDisplayDashboardUrls  = "displayDashboardUrls"

	// MethodValidatePromptInput is client-exposed: the host calls back into
	// the orchestrator to validate candidate prompt input.
	MethodValidatePromptInput = "validatePromptInputString"
)

// Config contains configuration for the interaction service.
type Config struct {
	// Context is the per-instance session state. Required.
	Context *SessionContext

	// Surface is the UI front-end. If nil, a NopSurface is used.
	Surface Surface

	// Logger is the logger for the service.
	Logger logr.Logger
}

// Service is the catalogue of editor-side operations the orchestrator invokes.
// Operations that await a human response are represented as pending prompts
// completed later from a UI callback (Submit, Choose, Select, Dismiss) or by
// connection teardown.
type Service struct {
	session *SessionContext
	surface Surface
	log     logr.Logger
	prompts promptTable
}

// NewService creates an interaction service over the given session context.
func NewService(config Config) *Service {
	log := config.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
	}

	surface := config.Surface
	if surface == nil {
		surface = NopSurface{}
	}

	return &Service{
		session: config.Context,
		surface: surface,
		log:     log,
	}
}

// BindConnection attaches the service's teardown behavior to a connection:
// when the connection closes, every prompt still pending on it resolves with
// the cancellation sentinel.
func (s *Service) BindConnection(conn *rpc.Conn) {
	conn.OnClose(func() {
		s.prompts.cancelForConn(conn)
	})
}

// RegisterMethods registers the server-exposed interaction surface on the router.
func (s *Service) RegisterMethods(router *rpc.Router) {
	router.Register(MethodShowStatus, s.handleShowStatus)
	router.Register(MethodPromptForString, s.handlePromptForString)
	router.Register(MethodPromptForSecretString, s.handlePromptForSecretString)
	router.Register(MethodConfirm, s.handleConfirm)
	router.Register(MethodPromptForSelection, s.handlePromptForSelection)
	router.Register(MethodDisplayError, s.displayHandler(SeverityError))
	router.Register(MethodDisplayMessage, s.displayHandler(SeverityInfo))
	router.Register(MethodDisplaySuccess, s.displayHandler(SeveritySuccess))
	router.Register(MethodDisplaySubtleMessage, s.displayHandler(SeveritySubtle))
	router.Register(MethodDisplayEmptyLine, s.handleDisplayEmptyLine)
	router.Register(MethodDisplayLines, s.handleDisplayLines)
	router.Register(MethodDisplayDashboardUrls, s.handleDisplayDashboardUrls)
}

type showStatusParams struct {
	Status *string `json:"status"`
}

func (s *Service) handleShowStatus(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p showStatusParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	s.session.SetStatus(p.Status)
	s.surface.ShowStatus(p.Status)
	return nil, nil
}

type promptForStringParams struct {
	Text         string `json:"text"`
	DefaultValue string `json:"defaultValue,omitempty"`
	IsSecret     bool   `json:"isSecret,omitempty"`
	HasValidator bool   `json:"hasValidator,omitempty"`
}

func (s *Service) handlePromptForString(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p promptForStringParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}
	return s.promptForString(ctx, conn, p)
}

func (s *Service) handlePromptForSecretString(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p promptForStringParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}
	p.IsSecret = true
	return s.promptForString(ctx, conn, p)
}

// promptForString opens an input surface and waits for the user. The accepted
// string is returned; a dismissed prompt yields the cancellation sentinel
// (null), never an error.
func (s *Service) promptForString(ctx context.Context, conn *rpc.Conn, p promptForStringParams) (any, error) {
	prompt := s.prompts.add(promptKindInput, conn, p.HasValidator, nil)

	s.surface.ShowInputPrompt(InputPrompt{
		ID:           prompt.id,
		Text:         p.Text,
		Default:      p.DefaultValue,
		Secret:       p.IsSecret,
		HasValidator: p.HasValidator,
	})

	outcome, err := s.prompts.await(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return outcome.str, nil
}

type confirmParams struct {
	Text          string `json:"text"`
	DefaultChoice bool   `json:"defaultChoice,omitempty"`
}

func (s *Service) handleConfirm(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p confirmParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	prompt := s.prompts.add(promptKindConfirmation, conn, false, nil)

	s.surface.ShowConfirmation(ConfirmationPrompt{
		ID:            prompt.id,
		Text:          p.Text,
		DefaultChoice: p.DefaultChoice,
	})

	outcome, err := s.prompts.await(ctx, prompt)
	if err != nil {
		return nil, err
	}
	// A dismissed confirmation yields null, distinct from an explicit false.
	return outcome.boolean, nil
}

type promptForSelectionParams struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

func (s *Service) handlePromptForSelection(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p promptForSelectionParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	prompt := s.prompts.add(promptKindSelection, conn, false, p.Choices)

	s.surface.ShowSelection(SelectionPrompt{
		ID:      prompt.id,
		Text:    p.Text,
		Choices: p.Choices,
	})

	outcome, err := s.prompts.await(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return outcome.str, nil
}

type displayParams struct {
	Message string `json:"message"`
}

func (s *Service) displayHandler(severity NotificationSeverity) rpc.Handler {
	return func(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
		var p displayParams
		if err := rpc.UnmarshalParams(params, &p); err != nil {
			return nil, err
		}
		s.surface.ShowNotification(Notification{Severity: severity, Text: p.Message})
		return nil, nil
	}
}

func (s *Service) handleDisplayEmptyLine(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	s.session.AppendOutputLine("")
	return nil, nil
}

type displayLinesParams struct {
	Lines []OutputLine `json:"lines"`
}

func (s *Service) handleDisplayLines(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p displayLinesParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	// Lines are appended in order, preserving the stream tag.
	for _, line := range p.Lines {
		s.session.AppendOutput(line)
	}
	return nil, nil
}

type displayDashboardUrlsParams struct {
	DashboardUrls DashboardUrls `json:"dashboardUrls"`
}

func (s *Service) handleDisplayDashboardUrls(ctx context.Context, conn *rpc.Conn, params json.RawMessage) (any, error) {
	var p displayDashboardUrlsParams
	if err := rpc.UnmarshalParams(params, &p); err != nil {
		return nil, err
	}

	// Exactly one notification, regardless of how many URLs are present.
	s.surface.ShowUrlNotification(UrlNotification{
		PrimaryUrl:   p.DashboardUrls.Primary,
		AlternateUrl: p.DashboardUrls.Alternate,
	})

	// Both URLs land in the durable output exactly once, independent of
	// whether the notification is acted on.
	s.session.AppendOutputLine(fmt.Sprintf("Dashboard: %s", p.DashboardUrls.Primary))
	if p.DashboardUrls.Alternate != "" {
		s.session.AppendOutputLine(fmt.Sprintf("Dashboard (alternate): %s", p.DashboardUrls.Alternate))
	}

	return nil, nil
}

// ValidateInput round-trips a candidate value through the client-exposed
// validation callback of the connection that opened the prompt. A nil result
// means the orchestrator has no validation configured.
func (s *Service) ValidateInput(ctx context.Context, promptID string, value string) (*ValidationResult, error) {
	prompt, found := s.prompts.get(promptID)
	if !found {
		return nil, errUnknownPrompt(promptID)
	}
	if !prompt.hasValidator {
		return nil, nil
	}

	var result *ValidationResult
	callErr := prompt.conn.Call(ctx, MethodValidatePromptInput, map[string]string{"input": value}, &result)
	if callErr != nil {
		return nil, callErr
	}
	return result, nil
}

// Submit attempts to complete an input prompt with the given value. When the
// prompt has a validator and the most recent validation reports unsuccessful,
// the validation result is returned and the prompt stays open. Validation
// failures are values, never errors.
func (s *Service) Submit(ctx context.Context, promptID string, value string) (*ValidationResult, error) {
	prompt, found := s.prompts.get(promptID)
	if !found {
		return nil, errUnknownPrompt(promptID)
	}
	if prompt.kind != promptKindInput {
		return nil, fmt.Errorf("prompt %q does not accept string input", promptID)
	}

	if prompt.hasValidator {
		result, validateErr := s.ValidateInput(ctx, promptID, value)
		if validateErr != nil {
			return nil, validateErr
		}
		if result != nil && !result.Successful {
			return result, nil
		}
	}

	prompt.complete(promptOutcome{str: &value})
	return nil, nil
}

// Choose completes a confirmation prompt with an explicit choice.
func (s *Service) Choose(promptID string, choice bool) error {
	prompt, found := s.prompts.get(promptID)
	if !found {
		return errUnknownPrompt(promptID)
	}
	if prompt.kind != promptKindConfirmation {
		return fmt.Errorf("prompt %q is not a confirmation", promptID)
	}

	prompt.complete(promptOutcome{boolean: &choice})
	return nil
}

// Select completes a selection prompt with one of its listed choices.
func (s *Service) Select(promptID string, choice string) error {
	prompt, found := s.prompts.get(promptID)
	if !found {
		return errUnknownPrompt(promptID)
	}
	if prompt.kind != promptKindSelection {
		return fmt.Errorf("prompt %q is not a selection", promptID)
	}

	valid := false
	for _, c := range prompt.choices {
		if c == choice {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%q is not among the choices of prompt %q", choice, promptID)
	}

	prompt.complete(promptOutcome{str: &choice})
	return nil
}

// Dismiss resolves a prompt with the cancellation sentinel: the surface was
// closed without a choice.
func (s *Service) Dismiss(promptID string) error {
	prompt, found := s.prompts.get(promptID)
	if !found {
		return errUnknownPrompt(promptID)
	}

	prompt.complete(promptOutcome{})
	return nil
}

// Status returns the current status string of the session.
func (s *Service) Status() *string {
	return s.session.Status()
}
