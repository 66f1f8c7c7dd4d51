// Package disk implements the on-disk column-oriented Storage backend
// (spec.md §4.5): a catalog file mapping table names to directory links,
// and per-column fixed-record block files backed by an append-only heap
// for variable-length payloads.
package disk

import "github.com/woralem/dbtext/internal/dbtext/ast"

// TypeCode is the storage-layer byte-code type space, wider than the
// SQL-facing ast.DataType: the high bit partitions fixed-width types
// (MSB=0) from variable-width types (MSB=1), so a column manager can
// decide its storage strategy from the code alone without a separate
// lookup.
type TypeCode uint8

const (
	codeNull      TypeCode = 0b00000000
	codeTinyInt   TypeCode = 0b00000001
	codeSmallInt  TypeCode = 0b00000010
	codeInteger   TypeCode = 0b00000011
	codeBigInt    TypeCode = 0b00000100
	codeUTinyInt  TypeCode = 0b00000101
	codeUSmallInt TypeCode = 0b00000110
	codeUInteger  TypeCode = 0b00000111
	codeUBigInt   TypeCode = 0b00001000
	codeFloat     TypeCode = 0b00001001
	codeDouble    TypeCode = 0b00001010
	codeDate      TypeCode = 0b00001011
	codeTime      TypeCode = 0b00001100
	codeTimestamp TypeCode = 0b00001101
	codeBoolean   TypeCode = 0b00001110

	codeDecimal      TypeCode = 0b10000000
	codeVarChar      TypeCode = 0b10000001
	codeText         TypeCode = 0b10000010
	codeVarBinary    TypeCode = 0b10000011
	codeBlob         TypeCode = 0b10000100
	codeUUID         TypeCode = 0b10000101
	codeArray        TypeCode = 0b10000110
	codeJSON         TypeCode = 0b10000111
	codeJSONB        TypeCode = 0b10001000
	codePhoneNumber  TypeCode = 0b10001001
	codeEmailAddress TypeCode = 0b10001010
	codeAddress      TypeCode = 0b10001011
	codeTelegram     TypeCode = 0b10001100

	codeUnknown TypeCode = 0xFF
)

// IsVariableLength reports whether the high bit marks t as a
// variable-width type requiring a backing heap file.
func (t TypeCode) IsVariableLength() bool { return t&0b10000000 != 0 }

// FromAST maps the SQL-facing DataType onto the storage-layer byte code.
// Only the subset the parser can produce is reachable today; the wider
// code space exists so a future column type (UUID, JSON, ...) can be
// added without an on-disk format break.
func FromAST(dt ast.DataType) TypeCode {
	switch dt {
	case ast.INT:
		return codeBigInt
	case ast.DOUBLE:
		return codeDouble
	case ast.VARCHAR:
		return codeVarChar
	case ast.BOOLEAN:
		return codeBoolean
	case ast.DATE:
		return codeDate
	case ast.TIMESTAMP:
		return codeTimestamp
	default:
		return codeUnknown
	}
}

// ToAST maps a storage-layer byte code back onto the SQL-facing type the
// executor understands. Codes with no SQL surface (Decimal, Json, Uuid,
// ...) map to UNKNOWN; the engine never creates columns of those types
// today, so this is reachable only via a corrupted meta file.
func (t TypeCode) ToAST() ast.DataType {
	switch t {
	case codeBigInt, codeInteger, codeSmallInt, codeTinyInt, codeUBigInt, codeUInteger, codeUSmallInt, codeUTinyInt:
		return ast.INT
	case codeDouble, codeFloat:
		return ast.DOUBLE
	case codeVarChar, codeText:
		return ast.VARCHAR
	case codeBoolean:
		return ast.BOOLEAN
	case codeDate:
		return ast.DATE
	case codeTimestamp:
		return ast.TIMESTAMP
	default:
		return ast.UNKNOWN
	}
}
