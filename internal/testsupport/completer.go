package testsupport

import (
	"context"
	"errors"
	"sync"
)

// Prompt records one completion request.
type Prompt struct {
	System   string
	User     string
	ImageURL string
}

// Completer is a scripted llm.Completer. Responses are returned in order; the
// last one repeats once the script runs out.
type Completer struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Calls     []Prompt
}

// NewCompleter returns a completer that answers with responses.
func NewCompleter(responses ...string) *Completer {
	return &Completer{Responses: responses}
}

// CompleteJSON implements llm.Completer.
func (c *Completer) CompleteJSON(_ context.Context, system, user string) (string, error) {
	return c.next(Prompt{System: system, User: user})
}

// CompleteJSONWithImage implements llm.ImageCompleter.
func (c *Completer) CompleteJSONWithImage(_ context.Context, system, user, imageURL string) (string, error) {
	return c.next(Prompt{System: system, User: user, ImageURL: imageURL})
}

// CallCount returns the number of requests served.
func (c *Completer) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

func (c *Completer) next(p Prompt) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, p)
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Responses) == 0 {
		return "", errors.New("testsupport completer: no scripted response")
	}
	idx := len(c.Calls) - 1
	if idx >= len(c.Responses) {
		idx = len(c.Responses) - 1
	}
	return c.Responses[idx], nil
}
