// Package main hosts the flashbulb CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into pipeline runs, name
// cache maintenance, readiness checks, and configuration scaffolding. It
// centralizes configuration resolution and run logging so subcommands only
// decide what to print.
package main
