package main

import (
	"fmt"
	"io"
	"strings"
)

const (
	red        = "\033[31m"
	green      = "\033[32m"
	yellow     = "\033[33m"
	blue       = "\033[34m"
	magenta    = "\033[35m"
	cyan       = "\033[36m"
	gray       = "\033[90m"
	resetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

// printRoutes writes one line per "METHOD /path" pattern with the method
// coloured.
func printRoutes(w io.Writer, routes []string) {
	for _, route := range routes {
		method, path, ok := strings.Cut(route, " ")
		if !ok {
			method, path = "", route
		}
		color, known := methodColors[method]
		if !known {
			color = gray
		}
		fmt.Fprintf(w, "[%s %-7s%s] %s\n", color, method, resetColor, path)
	}
}

func errorLine(w io.Writer, msg string) {
	fmt.Fprintf(w, "%sError:%s %s\n", red, resetColor, msg)
}
