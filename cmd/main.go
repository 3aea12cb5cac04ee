package main

import (
	"github.com/shopkit/order/internal/app"
	"github.com/shopkit/order/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
