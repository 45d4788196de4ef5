// Package config holds the crawl configuration of the spiderman command.
//
// Config is a flat struct populated in three steps: NewConfig sets the
// defaults, ApplyFile copies the values of the YAML configuration file, and
// the command applies the flags the user set explicitly. Validate is called
// once afterwards.
//
// The YAML file also carries per-host crawl rules (follow and ignore
// patterns, headers, maximum path depth) that the classifier consults for
// every discovered URL.
package config
