/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package interaction

// Surface is the UI front-end collaborator presenting interaction requests to
// the user. Implementations must not block: each Show method returns promptly,
// and prompts are resolved later by calling back into the Service (Submit,
// Choose, Select, Dismiss) from a UI event.
type Surface interface {
	// ShowStatus updates the status indicator; nil hides it.
	ShowStatus(text *string)

	// ShowInputPrompt presents an input surface for the given prompt.
	ShowInputPrompt(prompt InputPrompt)

	// ShowConfirmation presents a surface with exactly two labeled choices.
	ShowConfirmation(prompt ConfirmationPrompt)

	// ShowSelection presents a single-choice-from-list surface.
	ShowSelection(prompt SelectionPrompt)

	// ShowNotification presents a one-way notification.
	ShowNotification(n Notification)

	// ShowUrlNotification presents exactly one notification offering to open
	// either dashboard URL externally.
	ShowUrlNotification(n UrlNotification)
}

// NopSurface is a Surface that presents nothing. Prompts shown on it remain
// pending until dismissed by connection teardown.
type NopSurface struct{}

var _ Surface = NopSurface{}

func (NopSurface) ShowStatus(*string)                  {}
func (NopSurface) ShowInputPrompt(InputPrompt)         {}
func (NopSurface) ShowConfirmation(ConfirmationPrompt) {}
func (NopSurface) ShowSelection(SelectionPrompt)       {}
func (NopSurface) ShowNotification(Notification)       {}
func (NopSurface) ShowUrlNotification(UrlNotification) {}
