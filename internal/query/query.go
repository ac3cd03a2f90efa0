// Package query implements the one-shot query function (C9): spawn the
// Agent CLI in string mode with a single prompt, stream back parsed
// messages, and tear down the transport once the stream is exhausted.
//
// Grounded on the original crate's src/query.rs in full: unidirectional,
// stateless, fire-and-forget, no interrupts, no follow-up messages — the
// transport is kept alive only until the stream drains.
package query

import (
	"context"

	"github.com/stevensu1977/flowq-agent-sdk/internal/protocol"
	"github.com/stevensu1977/flowq-agent-sdk/internal/transport"
)

// Item is one element of a query's message stream: either a parsed message
// or a terminal error.
type Item struct {
	Message *protocol.Message
	Err     error
}

// Query spawns the Agent CLI with prompt in string mode and returns a
// channel of parsed messages. The channel is closed, and the underlying
// transport torn down, once the CLI's stdout stream is exhausted.
//
// Unlike Client (C8), Query is one-shot: there is no way to send follow-up
// messages or interrupt a query in progress (§4.3 "When to use query").
func Query(ctx context.Context, prompt string, cfg *transport.Config) (<-chan Item, error) {
	streamCfg := *cfg
	streamCfg.Mode = transport.ModeString
	streamCfg.Prompt = prompt

	tr := transport.New(&streamCfg)
	if err := tr.Connect(ctx); err != nil {
		return nil, err
	}

	out := make(chan Item, 16)
	go func() {
		defer close(out)
		defer tr.Close()

		values := tr.Values()
		errs := tr.Errors()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errs:
				if ok && err != nil {
					out <- Item{Err: err}
				}
				return
			case data, ok := <-values:
				if !ok {
					return
				}
				msg, err := protocol.ParseMessage(data)
				if err != nil {
					out <- Item{Err: err}
					continue
				}
				select {
				case out <- Item{Message: msg}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
