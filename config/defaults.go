package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

var nonWord = regexp.MustCompile(`[^a-z0-9_]`)

// slugify simplifies a string into a URL-friendly project slug.
func slugify(s string) string {
	s = strings.ToLower(s)

	for _, c := range []string{" ", "-", ".", "/"} {
		s = strings.ReplaceAll(s, c, "_")
	}

	s = nonWord.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")

	return strings.ReplaceAll(s, " ", "-")
}

// distroProject derives the default project name from the operating
// system identity, "name-version" slugified.
func distroProject() string {
	info, err := host.Info()
	if err != nil || info.Platform == "" {
		return slugify(runtime.GOOS)
	}

	if info.PlatformVersion == "" {
		return slugify(info.Platform)
	}

	return slugify(fmt.Sprintf("%s-%s", info.Platform, info.PlatformVersion))
}

// shortHostname is the machine name without the domain part.
func shortHostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}

	return strings.SplitN(name, ".", 2)[0]
}
