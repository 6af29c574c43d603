package bstruct_test

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"gitlab.com/stephen-fox/memwalk/bstruct"
)

func ExampleStructToBytes() {
	type example struct {
		Counter  uint16
		SomePtr  uint32
		Register uint32
	}

	b, err := bstruct.StructToBytes(example{
		Counter:  666,
		SomePtr:  0xc0ded00d,
		Register: 0xfabfabdd,
	}, binary.LittleEndian, nil)
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Printf("0x%x", b)

	// Output:
	// 0x9a020dd0dec0ddabbffa
}

func ExampleStructToBytes_with_logging() {
	type example struct {
		Counter  uint16
		SomePtr  uint32
		Register uint32
	}

	logger := log.New(os.Stdout, "", 0)

	_, err := bstruct.StructToBytes(example{
		Counter:  666,
		SomePtr:  0xc0ded00d,
		Register: 0xfabfabdd,
	}, binary.LittleEndian, func(info bstruct.FieldInfo) error {
		logger.Printf("field: %d | name: %q | type: %s | value:\n%s",
			info.Index, info.Name, info.Type, hex.Dump(info.Value))
		return nil
	})
	if err != nil {
		log.Fatalln(err)
	}

	// Output:
	// field: 0 | name: "Counter" | type: uint16 | value:
	// 00000000  9a 02                                             |..|
	// field: 1 | name: "SomePtr" | type: uint32 | value:
	// 00000000  0d d0 de c0                                       |....|
	// field: 2 | name: "Register" | type: uint32 | value:
	// 00000000  dd ab bf fa                                       |....|
}

func ExampleImage() {
	img := bstruct.NewImageX86_64(0x10000)

	name := img.CString("hello")

	node := img.Alloc(16)
	img.PutPointer(node, name)
	img.PutInt32(node+8, -1)

	fmt.Printf("name: 0x%x\nnode: 0x%x\nend: 0x%x\n", name, node, img.End())

	// Output:
	// name: 0x10000
	// node: 0x10008
	// end: 0x10018
}
