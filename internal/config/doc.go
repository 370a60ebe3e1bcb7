// Package config loads the staticrouter configuration.
//
// Settings come from staticrouter.yaml (or the file given with --config),
// overridden by STATICROUTER_* environment variables and command-line
// flags bound by the CLI. Nested keys use underscores in the environment:
// server.addr becomes STATICROUTER_SERVER_ADDR.
//
// # Configuration File Structure
//
//	output: dist
//	base_url: https://example.com
//	concurrency: 8
//	data_dir: content
//	urls:
//	  - /
//	  - /blogs
//	server:
//	  addr: ":8080"
//	  metrics: true
//	  watch: true
//	s3:
//	  bucket: my-site
//	  prefix: releases/
//	  region: eu-west-1
package config
