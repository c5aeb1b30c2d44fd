//go:build docs

package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra/doc"

	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/cmd"
)

const (
	docsDir        = "docs"
	readmeTemplate = "README.md.tpl"
	templateMarker = "{{ .CLI_REFERENCE }}"
)

// linkHandler points the root command page to the README.
func linkHandler(filename string) string {
	if filename == settings.CmdName+".md" {
		return "README.md"
	}

	return path.Join(docsDir, filename)
}

func main() {
	root := cmd.NewCommand(
		cmd.NewOptions(
			cmd.WithLogger(log.New(os.Stderr).Level(log.InfoLevel)),
		),
	)

	if err := doc.GenMarkdownTreeCustom(root, docsDir, func(string) string { return "" }, linkHandler); err != nil {
		fmt.Println("failed to generate CLI docs:", err)
		os.Exit(1)
	}

	readme, err := os.ReadFile(readmeTemplate)
	if err != nil {
		fmt.Println("failed to read README template:", err)
		os.Exit(1)
	}

	cmdDocs, err := os.ReadFile(path.Join(docsDir, settings.CmdName+".md"))
	if err != nil {
		fmt.Println("failed to read CLI doc README:", err)
		os.Exit(1)
	}

	final := strings.Replace(string(readme), templateMarker, string(cmdDocs), 1)
	if err := os.WriteFile("README.md", []byte(final), 0644); err != nil {
		fmt.Println("failed to write final README:", err)
		os.Exit(1)
	}
}
