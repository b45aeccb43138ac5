package main

import "github.com/danmuck/dltctl/internal/dlt"

func dltFraming(s string) (dlt.Framing, error) {
	if s == "" {
		return dlt.FramingFile, nil
	}
	return dlt.ParseFraming(s)
}
