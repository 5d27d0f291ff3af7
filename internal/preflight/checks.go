package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/viadorer/orchestrator-sub001/internal/config"
	"github.com/viadorer/orchestrator-sub001/internal/services/embeddings"
	"github.com/viadorer/orchestrator-sub001/internal/services/llm"
	"github.com/viadorer/orchestrator-sub001/internal/services/publisher"
)

const probeTimeout = 30 * time.Second

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It makes a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig, httpClient *http.Client) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	opts := []llm.Option{llm.WithRetry(1, 0, 0)}
	if httpClient != nil {
		opts = append(opts, llm.WithHTTPClient(httpClient))
	}
	if err := llm.NewClient(cfg, opts...).HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckPublisher lists connected accounts to verify the posting API key.
func CheckPublisher(ctx context.Context, cfg config.Publisher, httpClient *http.Client) Result {
	const name = "Publisher API"

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	accounts, err := publisher.NewClient(cfg, httpClient).ListAccounts(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if len(accounts) == 0 {
		return Result{Name: name, Detail: "no connected accounts"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d connected accounts", len(accounts))}
}

// CheckEmbeddings embeds a short probe string.
func CheckEmbeddings(ctx context.Context, cfg config.Embeddings, httpClient *http.Client) Result {
	const name = "Embeddings API"

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	vectors, err := embeddings.NewClient(cfg, httpClient).Embed(checkCtx, []string{"preflight"})
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return Result{Name: name, Detail: "empty embedding returned"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d dimensions", len(vectors[0]))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (API unreachable)"
	}
	return err.Error()
}
