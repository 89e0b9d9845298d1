package manager

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// detectGPU probes for acceleration hardware via nvidia-smi. The probe is
// advisory only: any failure (binary missing, driver error, timeout) yields
// "no GPU" and must not block startup.
func detectGPU(ctx context.Context) GPUInfo {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return GPUInfo{Name: "None"}
	}
	name, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	name = strings.TrimSpace(name)
	if name == "" {
		return GPUInfo{Name: "None"}
	}
	return GPUInfo{Present: true, Name: name}
}
