/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package interaction

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dotnet/aspire-sub011/internal/rpc"
	"github.com/dotnet/aspire-sub011/pkg/syncmap"
)

type promptKind int

const (
	promptKindInput promptKind = iota
	promptKindConfirmation
	promptKindSelection
)

// promptOutcome is the completion value of one interactive surface.
// All-nil fields are the cancellation sentinel: the surface was dismissed
// without a choice. This is distinct from an explicit false or empty answer.
type promptOutcome struct {
	str     *string
	boolean *bool
}

// pendingPrompt is one outstanding interactive request awaiting a human
// response. It is completed exactly once, from a UI callback or from
// connection teardown.
type pendingPrompt struct {
	id           string
	kind         promptKind
	hasValidator bool
	choices      []string
	conn         *rpc.Conn

	once sync.Once
	done chan promptOutcome
}

func (p *pendingPrompt) complete(outcome promptOutcome) {
	p.once.Do(func() {
		p.done <- outcome
		close(p.done)
	})
}

// promptTable tracks outstanding prompts keyed by prompt id.
type promptTable struct {
	prompts syncmap.Map[string, *pendingPrompt]
}

func (t *promptTable) add(kind promptKind, conn *rpc.Conn, hasValidator bool, choices []string) *pendingPrompt {
	p := &pendingPrompt{
		id:           uuid.New().String(),
		kind:         kind,
		hasValidator: hasValidator,
		choices:      choices,
		conn:         conn,
		done:         make(chan promptOutcome, 1),
	}
	t.prompts.Store(p.id, p)
	return p
}

func (t *promptTable) get(id string) (*pendingPrompt, bool) {
	return t.prompts.Load(id)
}

func (t *promptTable) remove(id string) {
	t.prompts.Delete(id)
}

// cancelForConn completes every still-pending prompt owned by the given
// connection with the cancellation sentinel. Called from the connection's
// close hook so teardown never leaves a prompt unresolved.
func (t *promptTable) cancelForConn(conn *rpc.Conn) {
	t.prompts.Range(func(id string, p *pendingPrompt) bool {
		if p.conn == conn {
			p.complete(promptOutcome{})
		}
		return true
	})
}

// await blocks until the prompt completes or the context is cancelled, then
// removes the prompt from the table.
func (t *promptTable) await(ctx context.Context, p *pendingPrompt) (promptOutcome, error) {
	defer t.remove(p.id)

	select {
	case outcome := <-p.done:
		return outcome, nil
	case <-ctx.Done():
		p.complete(promptOutcome{})
		return promptOutcome{}, ctx.Err()
	}
}

func errUnknownPrompt(id string) error {
	return fmt.Errorf("no pending prompt with id %q", id)
}
