package app

import (
	"github.com/vk/provision/internal/registry"
	"github.com/vk/provision/modules/env_vars"
	"github.com/vk/provision/modules/http_fetch"
	"github.com/vk/provision/modules/print"
	"github.com/vk/provision/modules/s3"
	"github.com/vk/provision/modules/shell"
)

// coreModules is the definitive list of all runner modules that are compiled
// into the provision binary.
var coreModules = []registry.Module{
	&shell.Module{},
	&env_vars.Module{},
	&print.Module{},
	&http_fetch.Module{},
	&s3.Module{},
}
