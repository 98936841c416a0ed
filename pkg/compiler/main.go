// Package compiler turns GB BASIC source pages into byte code for the
// cartridge kernel and links it with the asset bundle into a ROM image.
//
// Pipeline: pages → Lex → Parse → resolve → Generate → assemble → Link → cart.Build
package compiler
