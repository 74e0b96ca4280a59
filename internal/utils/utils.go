package utils

import (
	"strconv"
)

// F64ToS converts float to string using the maximum accuracy
func F64ToS(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PointToS formats a point as "x,y" using the maximum accuracy
func PointToS(x, y float64) string {
	return F64ToS(x) + "," + F64ToS(y)
}
