//go:build !debug
// +build !debug

package drive

type lumberjack struct{}

func makeLumberJack() lumberjack { return lumberjack{} }

func (l lumberjack) log(msg string, args ...interface{}) {}

func (l lumberjack) Reset() {}

func (l lumberjack) Log() string { return "" }
