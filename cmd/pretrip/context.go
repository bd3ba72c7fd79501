package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
	"github.com/JonMunkholm/pretrip/internal/client"
	"github.com/JonMunkholm/pretrip/internal/config"
)

// maxFileSize matches the server's default upload limit.
const maxFileSize = 10 << 20

type commandContext struct {
	serverFlag string
	tokenFlag  string
	logLevel   string
	jsonOutput bool

	clientOnce sync.Once
	client     *client.Client
	clientErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureClient builds the API client from the environment, with flags taking
// precedence. Offline commands never call it.
func (c *commandContext) ensureClient() (*client.Client, error) {
	c.clientOnce.Do(func() {
		cfg, err := config.LoadClient()
		if err != nil {
			c.clientErr = err
			return
		}
		if s := strings.TrimSpace(c.serverFlag); s != "" {
			cfg.ServerURL = s
		}
		if t := strings.TrimSpace(c.tokenFlag); t != "" {
			cfg.Token = t
		}
		if err := cfg.Validate(); err != nil {
			c.clientErr = fmt.Errorf("client config validation: %w", err)
			return
		}
		c.client, c.clientErr = client.New(client.Config{
			BaseURL: cfg.ServerURL,
			Token:   cfg.Token,
			Timeout: cfg.Timeout,
		})
	})
	return c.client, c.clientErr
}

// readBlueprint loads and decodes a .csv file from disk.
func readBlueprint(path string) (string, error) {
	if err := blueprint.CheckExtension(path); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open blueprint: %w", err)
	}
	defer f.Close()

	return blueprint.Decode(f, maxFileSize)
}
