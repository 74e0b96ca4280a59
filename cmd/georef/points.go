package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/airbusgeo/georef/internal/georef"
)

// parsePoint parses "x,y" (spaces allowed)
func parsePoint(s string) (georef.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return georef.Point{}, fmt.Errorf("parsePoint[%s]: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return georef.Point{}, fmt.Errorf("parsePoint[%s]: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return georef.Point{}, fmt.Errorf("parsePoint[%s]: %w", s, err)
	}
	return georef.Point{X: x, Y: y}, nil
}

func parsePoints(args []string) ([]georef.Point, error) {
	pts := make([]georef.Point, 0, len(args))
	for _, a := range args {
		p, err := parsePoint(a)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// readPoints reads one point per line, skipping blank lines and lines starting with #
func readPoints(scanner *bufio.Scanner) ([]georef.Point, error) {
	var pts []georef.Point
	for line := 1; scanner.Scan(); line++ {
		s := strings.TrimSpace(scanner.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		p, err := parsePoint(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pts = append(pts, p)
	}
	return pts, scanner.Err()
}
