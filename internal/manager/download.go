package manager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// acquireDefaultArtifact stream-downloads the configured default artifact into
// the models dir, creating the dir if absent. The download goes to a .part
// file first and is renamed only on success, so an interrupted transfer never
// looks like a loadable artifact.
func (m *Manager) acquireDefaultArtifact(ctx context.Context) (string, error) {
	if err := os.MkdirAll(m.cfg.ModelsDir, 0o755); err != nil {
		return "", fmt.Errorf("create models dir: %w", err)
	}
	dest := filepath.Join(m.cfg.ModelsDir, m.cfg.ArtifactName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.ArtifactURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: unexpected status %s", resp.Status)
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	pw := &progressWriter{total: resp.ContentLength, name: m.cfg.ArtifactName, log: m.log}
	_, err = io.Copy(io.MultiWriter(f, pw), resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("stream artifact: %w", err)
	}
	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("finalize artifact: %w", err)
	}
	return dest, nil
}

// progressLogStep controls how often transfer progress is logged.
const progressLogStep = 256 << 20

// progressWriter logs transfer progress every progressLogStep bytes.
type progressWriter struct {
	total   int64
	written int64
	lastLog int64
	name    string
	log     zerolog.Logger
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.written-p.lastLog >= progressLogStep || (p.total > 0 && p.written == p.total) {
		p.lastLog = p.written
		ev := p.log.Info().Str("artifact", p.name).Int64("bytes", p.written)
		if p.total > 0 {
			ev = ev.Int64("total", p.total).Int("pct", int(p.written*100/p.total))
		}
		ev.Msg("downloading model")
	}
	return len(b), nil
}
