// Package sysinfo reports the host the gateway runs on.
package sysinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"

	"github.com/newthinker/nurexia/internal/core"
)

// Info describes the running process and its host.
type Info struct {
	OS               string `json:"os" yaml:"os"`
	Arch             string `json:"arch" yaml:"arch"`
	GoVersion        string `json:"go_version" yaml:"go_version"`
	CPUs             int    `json:"cpus" yaml:"cpus"`
	Hostname         string `json:"hostname" yaml:"hostname"`
	User             string `json:"user" yaml:"user"`
	WorkingDirectory string `json:"working_directory" yaml:"working_directory"`
	Version          string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Collect gathers Info. Lookups that fail leave their field as "unknown".
func Collect(version string) Info {
	info := Info{
		OS:               runtime.GOOS,
		Arch:             runtime.GOARCH,
		GoVersion:        runtime.Version(),
		CPUs:             runtime.NumCPU(),
		Hostname:         "unknown",
		User:             "unknown",
		WorkingDirectory: "unknown",
		Version:          version,
	}
	if h, err := os.Hostname(); err == nil {
		info.Hostname = h
	}
	if u, err := user.Current(); err == nil {
		info.User = u.Username
	}
	if wd, err := os.Getwd(); err == nil {
		info.WorkingDirectory = wd
	}
	return info
}

// Render formats info as "key: value" lines or indented JSON.
func Render(info Info, format string) (string, error) {
	switch format {
	case "json":
		b, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding system info: %w", err)
		}
		return string(b), nil
	case "text", "":
		var sb strings.Builder
		for _, kv := range info.pairs() {
			fmt.Fprintf(&sb, "%s: %s\n", kv[0], kv[1])
		}
		return strings.TrimSuffix(sb.String(), "\n"), nil
	}
	return "", core.NewError(core.ErrValidation,
		fmt.Sprintf("unknown format %q (expected text or json)", format), nil)
}

func (i Info) pairs() [][2]string {
	p := [][2]string{
		{"os", i.OS},
		{"arch", i.Arch},
		{"go_version", i.GoVersion},
		{"cpus", fmt.Sprint(i.CPUs)},
		{"hostname", i.Hostname},
		{"user", i.User},
		{"working_directory", i.WorkingDirectory},
	}
	if i.Version != "" {
		p = append(p, [2]string{"version", i.Version})
	}
	return p
}
