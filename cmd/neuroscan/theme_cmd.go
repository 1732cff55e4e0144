package main

import "fmt"

// cmdTheme needs no session: the preference is purely local and survives
// sign-out, same as the web client keeping the toggle on the login page.
func (a *app) cmdTheme(args []string) error {
	if len(args) == 0 {
		fmt.Println(a.prefs.Theme())
		return nil
	}
	switch args[0] {
	case "toggle":
		fmt.Printf("Theme set to %s.\n", a.prefs.Toggle())
		return nil
	case "show":
		fmt.Println(a.prefs.Theme())
		return nil
	default:
		return fmt.Errorf("usage: neuroscan theme [show|toggle]")
	}
}
