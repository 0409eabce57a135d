//go:build !linux

package netcfg

import "errors"

var errNotSupported = errors.New("not supported")

func ConfigureInterface(cfg InterfaceConfig) error     { return errNotSupported }
func AddRoutes(ifName string, routes []Route) error    { return errNotSupported }
func DeleteRoutes(ifName string, routes []Route) error { return errNotSupported }
