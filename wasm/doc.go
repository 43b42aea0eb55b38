// Package wasm implements a single-pass decoder, structural validator,
// and re-encoder for WebAssembly binary modules (version 1, the MVP
// instruction and section set).
//
// # Supported Features
//
//	Core value types (i32, i64, f32, f64)
//	Functions, tables, memories, globals
//	Structured control flow, calls, local/global access
//	Memory operations (loads, stores, memory.size, memory.grow)
//	Import/export of all definitions
//	Sign extension opcodes
//
// GC, SIMD, reference types beyond funcref/externref, threads, bulk
// memory, multi-memory, memory64, and exception handling are
// out of scope and are not decoded.
//
// # Parsing
//
// Parse a WebAssembly module from binary:
//
//	data, _ := os.ReadFile("module.wasm")
//	module, err := wasm.ParseModule(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Parse with structural validation enabled:
//
//	module, err := wasm.ParseModuleValidate(data)
//
// # Encoding
//
// Encode a module back to binary. Re-encoding a section the decoder
// understands is byte-stable:
//
//	encoded := module.Encode()
//
// # Module structure
//
//	module.Types      []FuncType    // Function signatures
//	module.Funcs      []uint32      // Type indices for functions
//	module.Tables     []TableType   // Table definitions
//	module.Memories   []MemoryType  // Memory definitions
//	module.Globals    []Global      // Global definitions
//	module.Imports    []Import      // Imported definitions
//	module.Exports    []Export      // Exported definitions
//	module.Code       []FuncBody    // Function bodies
//	module.Data       []DataSegment // Data segments
//	module.Elements   []Element     // Element segments
//
// Module.Functions assembles the combined import+declared function
// index space into a single slice, resolving each entry's name, type,
// locals, and body.
//
// # Instructions
//
// Decode instructions from a function body's raw bytecode:
//
//	instructions, err := wasm.DecodeInstructions(code)
//
// Encode instructions back to bytecode:
//
//	encoded := wasm.EncodeInstructions(instructions)
//
// # Validation
//
// Validate checks that every module-level index reference (function,
// type, table, memory, global) resolves within its space, that export
// names are unique, that the start function has signature [] -> [], and
// that section entry counts agree with each other. Indices inside
// function bodies and initializer expressions are not checked.
//
// # Logging
//
// SetLogger installs a *zap.Logger to observe section boundaries and
// sizes at debug level; by default decoding is silent.
package wasm
