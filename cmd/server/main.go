package main

import "storegate/internal/app"

// @title        Storegate API
// @version      1.0
// @description  Storefront back-office API with two-factor, captcha-gated login.
// @BasePath     /
func main() {
	app.Run()
}
