package llm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	llmclient "weaver/internal/llmClient"
)

// PromptSaver implements PromptHook and appends every prompt and raw
// response to <Dir>/prompt/<phase>.txt. The last raw response of each phase
// is also kept as <Dir>/<phase>.raw.txt.
type PromptSaver struct {
	Dir string

	mu sync.Mutex
}

func (p *PromptSaver) Before(_ context.Context, phase string, req llmclient.Request) {
	var buf bytes.Buffer
	buf.WriteString("==== ")
	buf.WriteString(time.Now().Format(time.RFC3339))
	buf.WriteString(" ====\n")
	if req.SystemPrompt != "" {
		buf.WriteString("[SYSTEM]\n")
		buf.WriteString(req.SystemPrompt)
		buf.WriteString("\n\n")
	}
	buf.WriteString("[USER]\n")
	buf.WriteString(req.UserPrompt)
	buf.WriteString("\n\n")
	p.appendTo(phase, buf.Bytes())
}

func (p *PromptSaver) After(_ context.Context, phase string, raw string, err error) {
	var buf bytes.Buffer
	buf.WriteString("[RESPONSE]\n")
	if err != nil {
		buf.WriteString("ERROR: " + err.Error() + "\n\n")
	} else {
		buf.WriteString(raw)
		buf.WriteString("\n\n")
	}
	p.appendTo(phase, buf.Bytes())
	if err == nil {
		p.mu.Lock()
		_ = os.WriteFile(filepath.Join(p.Dir, fileSafe(phase)+".raw.txt"), []byte(raw), 0o644)
		p.mu.Unlock()
	}
}

func (p *PromptSaver) appendTo(phase string, b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dir := filepath.Join(p.Dir, "prompt")
	_ = os.MkdirAll(dir, 0o755)
	f, _ := os.OpenFile(filepath.Join(dir, fileSafe(phase)+".txt"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if f != nil {
		_, _ = f.Write(b)
		_ = f.Close()
	}
}

func fileSafe(phase string) string {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, phase)
}
