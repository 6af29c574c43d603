package profile_test

import (
	"fmt"

	"gitlab.com/stephen-fox/memwalk/profile"
)

func ExampleTable() {
	beta := profile.CSGOClientProfile()
	beta.Name = "csgo-client-beta"
	beta.Signature = "91 48 8B 0D ? ? ? ? 8B 53 14"

	profiles := profile.Builtin().Add(beta)

	fmt.Println(profiles.CurrentOrExit().Signature)

	profiles.SetContext("csgo-client-beta")

	fmt.Println(profiles.CurrentOrExit().Signature)

	// Output:
	// 91 48 8B 05 ? ? ? ? 8B 53 14
	// 91 48 8B 0D ? ? ? ? 8B 53 14
}
