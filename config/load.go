// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/aumlib"
	"github.com/Azure/aumlib/internal/environment"
	"github.com/google/uuid"
	"github.com/hashicorp/go-getter"
)

// Load reads the configuration document from src.
// A src that names an existing local file is read directly, anything else is treated as a
// go-getter source (https URL, git:: reference, s3:: etc.) and downloaded into the `AUMLIB_DIR`
// directory first. The document format is chosen by the file extension.
func Load(ctx context.Context, src string) (*Document, error) {
	if strings.TrimSpace(src) == "" {
		return nil, aumlib.NewValidationError("config", "no configuration document supplied", nil)
	}

	path := src
	if _, err := os.Stat(src); err != nil {
		fetched, err := fetch(ctx, src)
		if err != nil {
			return nil, err
		}

		path = fetched
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: reading `%s`: %w", path, err)
	}

	return Decode(data, sourceExt(src))
}

// Decode decodes a document in the format given by ext (`.yaml`, `.yml` or `.json`).
// Unknown fields are rejected.
func Decode(data []byte, ext string) (*Document, error) {
	doc := new(Document)
	if err := NewUnmarshaler(data, ext).Unmarshal(doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, aumlib.NewValidationError("config", "configuration document is empty", nil)
		}

		return nil, aumlib.NewValidationError("config", "could not decode configuration document", err)
	}

	return doc, nil
}

func fetch(ctx context.Context, src string) (string, error) {
	dir := filepath.Join(environment.AumLibDir(), "config", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config.fetch: creating download directory: %w", err)
	}

	dst := filepath.Join(dir, "document"+sourceExt(src))
	if err := getter.GetFile(dst, src, getter.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("config.fetch: could not fetch `%s`: %w", src, err)
	}

	return dst, nil
}

// sourceExt returns the extension of the file named by a local path or getter source,
// ignoring any query string.
func sourceExt(src string) string {
	if i := strings.Index(src, "?"); i >= 0 {
		src = src[:i]
	}

	return filepath.Ext(src)
}
