package deps

import (
	"context"
	"os/exec"
	"strings"
)

// GPU describes one CUDA device reported by nvidia-smi.
type GPU struct {
	Index string
	Name  string
}

// DetectCUDA lists CUDA devices by running `nvidia-smi -L`. A missing binary
// or failing query yields no devices.
func DetectCUDA(ctx context.Context, run Runner) []GPU {
	if run == nil {
		if _, err := exec.LookPath("nvidia-smi"); err != nil {
			return nil
		}
		run = execRunner
	}
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()
	out, err := run(ctx, "nvidia-smi", "-L")
	if err != nil {
		return nil
	}
	return parseGPUList(string(out))
}

// CUDAAvailable reports whether at least one CUDA device is present.
func CUDAAvailable(ctx context.Context, run Runner) bool {
	return len(DetectCUDA(ctx, run)) > 0
}

// parseGPUList reads lines such as
// "GPU 0: NVIDIA A10 (UUID: GPU-...)".
func parseGPUList(output string) []GPU {
	var gpus []GPU
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "GPU ") {
			continue
		}
		head, rest, ok := strings.Cut(strings.TrimPrefix(line, "GPU "), ":")
		if !ok {
			continue
		}
		name := strings.TrimSpace(rest)
		if idx := strings.Index(name, " (UUID"); idx >= 0 {
			name = name[:idx]
		}
		gpus = append(gpus, GPU{Index: strings.TrimSpace(head), Name: name})
	}
	return gpus
}
