package memory_test

import (
	"fmt"
	"log"

	"gitlab.com/stephen-fox/memwalk/memory"
)

func ExamplePointerMaker_FromUint() {
	pm := memory.PointerMakerForX86_32()

	pointer := pm.FromUint(0xdeadbeef)

	fmt.Println(pointer.HexString())

	// Output: 0xdeadbeef
}

func ExamplePointerMaker_FromRawBytes() {
	pm := memory.PointerMakerForX86_32()

	pointer, err := pm.FromRawBytes([]byte{0xef, 0xbe, 0xad, 0xde})
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println(pointer.HexString())

	// Output: 0xdeadbeef
}

func ExamplePointer_Offset() {
	pm := memory.PointerMakerForX86_32()

	pointer := pm.FromUint(0xdeadbeef)

	fmt.Println(pointer.Offset(-0xef).HexString())

	// Output: 0xdeadbe00
}

func ExampleReader_Deref() {
	pm := memory.PointerMakerForX86_64()

	// 0x1000: pointer to 0x1010
	// 0x1010: pointer to 0x1020
	image := make([]byte, 0x30)
	copy(image[0x00:], pm.FromUint(0x1010).Bytes())
	copy(image[0x10:], pm.FromUint(0x1020).Bytes())

	reader := memory.NewReader(memory.NewBuffer(0x1000, image), pm)

	final, err := reader.Deref(0x1000, 0, 0)
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println(final.HexString())

	// Output: 0x0000000000001020
}
