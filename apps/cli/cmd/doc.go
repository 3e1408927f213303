// Package cmd implements the hookspec CLI commands using Cobra.
//
// Available commands:
//   - run: Execute test suites
//   - validate: Parse suites and every template without sending requests
//   - list: Display the cases and steps of suites
//   - funcs: Display the registered template and hook functions
//   - init: Create a config file and an example suite
//   - version: Show hookspec version information
//
// Every run flag falls back to a HOOKSPEC_* environment variable and then
// to the project config file.
package cmd
