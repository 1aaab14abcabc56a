package main

import learnkontrol "github.com/0h41/learnkontrol/src"

func main() {
	learnkontrol.Run()
}
