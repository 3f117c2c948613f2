package deps

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// ProbeVersion runs binary with args and extracts a version from the first
// line of output.
func ProbeVersion(ctx context.Context, binary string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out after %s", binary, versionTimeout)
		}
		return "", err
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return "", errors.New("empty version output")
	}
	version := ParseVersionLine(scanner.Text())
	if version == "" {
		return "", fmt.Errorf("unrecognized version output %q", scanner.Text())
	}
	return version, nil
}

// ParseVersionLine pulls the token after "version" from lines such as
// "ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023".
func ParseVersionLine(line string) string {
	fields := strings.Fields(line)
	for i, field := range fields {
		if strings.EqualFold(field, "version") && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}
