//go:build !egel_debug

package term

func checkExclusive(*Term) {}
