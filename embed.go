package blogimageeditor

import "embed"

// EmbeddedAssets holds the editor script and stylesheet served under /public.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
