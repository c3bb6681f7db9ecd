// Command devperf cleans developer productivity data, reports on it and
// compares regression models predicting Task_Success_Rate.
package main

func main() {
	Execute()
}
