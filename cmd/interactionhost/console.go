/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dotnet/aspire-sub011/internal/interaction"
)

// consoleSurface presents interaction requests on the terminal. Prompts are
// queued and answered one at a time from stdin; Show methods never block the
// RPC dispatcher.
type consoleSurface struct {
	in  *bufio.Scanner
	out io.Writer

	mu      sync.Mutex
	service *interaction.Service
	queue   chan func(ctx context.Context)
}

func newConsoleSurface(in io.Reader, out io.Writer) *consoleSurface {
	return &consoleSurface{
		in:    bufio.NewScanner(in),
		out:   out,
		queue: make(chan func(ctx context.Context), 64),
	}
}

func (s *consoleSurface) setService(service *interaction.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.service = service
}

// run answers queued prompts until the context is cancelled.
func (s *consoleSurface) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ask := <-s.queue:
			ask(ctx)
		}
	}
}

func (s *consoleSurface) ShowStatus(text *string) {
	if text == nil {
		fmt.Fprintln(s.out, "[status cleared]")
		return
	}
	fmt.Fprintf(s.out, "[status] %s\n", *text)
}

func (s *consoleSurface) ShowInputPrompt(prompt interaction.InputPrompt) {
	s.queue <- func(ctx context.Context) {
		for {
			label := prompt.Text
			if prompt.Default != "" {
				label = fmt.Sprintf("%s [%s]", label, prompt.Default)
			}
			fmt.Fprintf(s.out, "%s: ", label)

			line, ok := s.readLine()
			if !ok {
				_ = s.service.Dismiss(prompt.ID)
				return
			}
			if line == "" {
				line = prompt.Default
			}

			result, submitErr := s.service.Submit(ctx, prompt.ID, line)
			if submitErr != nil {
				_ = s.service.Dismiss(prompt.ID)
				return
			}
			if result == nil {
				return // accepted
			}
			fmt.Fprintf(s.out, "%s\n", result.Message)
		}
	}
}

func (s *consoleSurface) ShowConfirmation(prompt interaction.ConfirmationPrompt) {
	s.queue <- func(ctx context.Context) {
		def := "y/N"
		if prompt.DefaultChoice {
			def = "Y/n"
		}
		fmt.Fprintf(s.out, "%s (%s): ", prompt.Text, def)

		line, ok := s.readLine()
		if !ok {
			_ = s.service.Dismiss(prompt.ID)
			return
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			_ = s.service.Choose(prompt.ID, true)
		case "n", "no":
			_ = s.service.Choose(prompt.ID, false)
		case "":
			_ = s.service.Choose(prompt.ID, prompt.DefaultChoice)
		default:
			_ = s.service.Dismiss(prompt.ID)
		}
	}
}

func (s *consoleSurface) ShowSelection(prompt interaction.SelectionPrompt) {
	s.queue <- func(ctx context.Context) {
		fmt.Fprintln(s.out, prompt.Text)
		for i, choice := range prompt.Choices {
			fmt.Fprintf(s.out, "  %d) %s\n", i+1, choice)
		}
		fmt.Fprint(s.out, "> ")

		line, ok := s.readLine()
		if !ok {
			_ = s.service.Dismiss(prompt.ID)
			return
		}

		index, parseErr := strconv.Atoi(strings.TrimSpace(line))
		if parseErr != nil || index < 1 || index > len(prompt.Choices) {
			_ = s.service.Dismiss(prompt.ID)
			return
		}

		_ = s.service.Select(prompt.ID, prompt.Choices[index-1])
	}
}

func (s *consoleSurface) ShowNotification(n interaction.Notification) {
	fmt.Fprintf(s.out, "[%s] %s\n", n.Severity, n.Text)
}

func (s *consoleSurface) ShowUrlNotification(n interaction.UrlNotification) {
	if n.AlternateUrl != "" {
		fmt.Fprintf(s.out, "[dashboard] %s (alternate: %s)\n", n.PrimaryUrl, n.AlternateUrl)
		return
	}
	fmt.Fprintf(s.out, "[dashboard] %s\n", n.PrimaryUrl)
}

func (s *consoleSurface) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

var _ interaction.Surface = (*consoleSurface)(nil)
