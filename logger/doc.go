// Package logger provides structured logging for resource clients using
// zerolog.
//
// Loggers are component scoped and take their extra fields as maps, so
// call sites stay free of zerolog types. Request headers go through
// RedactHeaders before they are logged.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("resource")
//	log.Debug("request settled", logger.Fields(logger.FieldCallID, id, logger.FieldStatus, 200))
package logger
