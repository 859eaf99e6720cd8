package main

import "lyra/internal/app"

func main() {
	app.NewApp().Start()
}
