/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package client

import (
	"context"

	"github.com/dotnet/aspire-sub011/internal/debug"
	"github.com/dotnet/aspire-sub011/internal/interaction"
	"github.com/dotnet/aspire-sub011/internal/launch"
	"github.com/dotnet/aspire-sub011/internal/server"
)

// Typed wrappers over the server-exposed method surface. Operations that
// await a human response return nil when the surface is dismissed without a
// choice; a nil value is the cancellation sentinel, not an error.

// Ping verifies connectivity and authentication.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var result server.PingResult
	if err := c.call(ctx, "ping", nil, &result); err != nil {
		return "", err
	}
	return result.Message, nil
}

// ShowStatus sets the host's status indicator; nil hides it.
func (c *Client) ShowStatus(ctx context.Context, text *string) error {
	return c.call(ctx, interaction.MethodShowStatus, map[string]any{"status": text}, nil)
}

// PromptForString asks the user for one string.
func (c *Client) PromptForString(ctx context.Context, text string, defaultValue string) (*string, error) {
	var result *string
	err := c.call(ctx, interaction.MethodPromptForString, map[string]any{
		"text":         text,
		"defaultValue": defaultValue,
		"hasValidator": c.config.Validator != nil,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PromptForSecretString asks the user for one string with input masking.
func (c *Client) PromptForSecretString(ctx context.Context, text string) (*string, error) {
	var result *string
	err := c.call(ctx, interaction.MethodPromptForSecretString, map[string]any{
		"text":         text,
		"hasValidator": c.config.Validator != nil,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Confirm presents two labeled choices. The result distinguishes an explicit
// false from a dismissal, which yields nil.
func (c *Client) Confirm(ctx context.Context, text string, defaultChoice bool) (*bool, error) {
	var result *bool
	err := c.call(ctx, interaction.MethodConfirm, map[string]any{
		"text":          text,
		"defaultChoice": defaultChoice,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PromptForSelection asks the user to pick one item from the list.
func (c *Client) PromptForSelection(ctx context.Context, text string, choices []string) (*string, error) {
	var result *string
	err := c.call(ctx, interaction.MethodPromptForSelection, map[string]any{
		"text":    text,
		"choices": choices,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) DisplayError(ctx context.Context, message string) error {
	return c.call(ctx, interaction.MethodDisplayError, map[string]any{"message": message}, nil)
}

func (c *Client) DisplayMessage(ctx context.Context, message string) error {
	return c.call(ctx, interaction.MethodDisplayMessage, map[string]any{"message": message}, nil)
}

func (c *Client) DisplaySuccess(ctx context.Context, message string) error {
	return c.call(ctx, interaction.MethodDisplaySuccess, map[string]any{"message": message}, nil)
}

func (c *Client) DisplaySubtleMessage(ctx context.Context, message string) error {
	return c.call(ctx, interaction.MethodDisplaySubtleMessage, map[string]any{"message": message}, nil)
}

// DisplayEmptyLine appends an empty line to the durable output surface.
func (c *Client) DisplayEmptyLine(ctx context.Context) error {
	return c.call(ctx, interaction.MethodDisplayEmptyLine, nil, nil)
}

// DisplayLines appends child-process output lines, preserving stream tag and
// order.
func (c *Client) DisplayLines(ctx context.Context, lines []interaction.OutputLine) error {
	return c.call(ctx, interaction.MethodDisplayLines, map[string]any{"lines": lines}, nil)
}

// DisplayDashboardUrls shows the single open-dashboard notification and logs
// both URLs.
func (c *Client) DisplayDashboardUrls(ctx context.Context, urls interaction.DashboardUrls) error {
	return c.call(ctx, interaction.MethodDisplayDashboardUrls, map[string]any{"dashboardUrls": urls}, nil)
}

// StartDebugSession asks the host to start a debug session for the launch
// configuration. The returned session id identifies the session for Stop.
func (c *Client) StartDebugSession(ctx context.Context, config launch.Configuration) (string, *launch.ResolvedDebugConfig, error) {
	var result struct {
		SessionID     string                      `json:"session_id"`
		Configuration *launch.ResolvedDebugConfig `json:"configuration"`
	}
	err := c.call(ctx, debug.MethodStartDebugSession, map[string]any{
		"launch_configuration": config,
	}, &result)
	if err != nil {
		return "", nil, err
	}
	return result.SessionID, result.Configuration, nil
}

// StopDebugSession terminates a session previously started by this client.
func (c *Client) StopDebugSession(ctx context.Context, sessionID string) error {
	return c.call(ctx, debug.MethodStopDebugSession, map[string]any{
		"session_id": sessionID,
	}, nil)
}
