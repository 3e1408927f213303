// Package logging configures the structured logger shared by the runner,
// the evaluator and hook functions.
//
// Loggers are plain *slog.Logger values. Components accept one through an
// option and fall back to Nop when none is given:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	logger = logging.ForStep(logger, "orders", "create order", "POST /orders")
//
// Hook functions never print; they log through the logger handed to them by
// the runner, which already carries suite, case and step attributes.
package logging
