/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package interaction

// ValidationResult is the outcome of validating one candidate input value via
// the client-exposed validation callback. A nil result means no validation is
// configured for the prompt.
type ValidationResult struct {
	Message    string `json:"message"`
	Successful bool   `json:"successful"`
}

// OutputLine is one child-process output line, tagged with its source stream.
type OutputLine struct {
	Stream string `json:"stream"`
	Text   string `json:"text"`
}

// DashboardUrls carries the dashboard addresses offered to the user.
type DashboardUrls struct {
	Primary   string `json:"primary"`
	Alternate string `json:"alternate,omitempty"`
}

// NotificationSeverity orders one-way notifications by decreasing
// persistence and severity.
type NotificationSeverity string

const (
	SeverityError   NotificationSeverity = "error"
	SeverityInfo    NotificationSeverity = "info"
	SeveritySuccess NotificationSeverity = "success"

	// SeveritySubtle marks a transient, non-blocking notification.
	SeveritySubtle NotificationSeverity = "subtle"
)

// Notification is a one-way message shown to the user. None of these await a
// response.
type Notification struct {
	Severity NotificationSeverity
	Text     string
}

// InputPrompt describes an input surface awaiting one string from the user.
type InputPrompt struct {
	ID      string
	Text    string
	Default string

	// Secret enables input masking.
	Secret bool

	// HasValidator indicates candidate values must round-trip through the
	// validation callback before submission is accepted.
	HasValidator bool
}

// ConfirmationPrompt describes a two-choice confirmation surface.
type ConfirmationPrompt struct {
	ID            string
	Text          string
	DefaultChoice bool
}

// SelectionPrompt describes a single-choice-from-list surface.
type SelectionPrompt struct {
	ID      string
	Text    string
	Choices []string
}

// UrlNotification describes the single notification offering to open one of
// the dashboard URLs externally.
type UrlNotification struct {
	PrimaryUrl   string
	AlternateUrl string
}
