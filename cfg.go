package main

import (
	"github.com/model-collapse/heat-serv/conf"
)

var GConf conf.Config

func LoadConfig(path string) (err error) {
	GConf, err = conf.Load(path)
	return
}
