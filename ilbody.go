// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package pickle

import (
	"encoding/binary"
	"fmt"
)

// ilBodyTerminator ends every translated body.
const ilBodyTerminator = 0xFF

// declaringTypeOf returns the type a token-resolved member belongs to.
// Type tokens contribute the type itself; module globals contribute nothing.
func declaringTypeOf(member interface{}) *Type {
	switch m := member.(type) {
	case *Type:
		return m
	case *Field:
		return m.DeclaringType()
	case *Method:
		return m.DeclaringType()
	case *Constructor:
		return m.DeclaringType()
	}
	return nil
}

// collectBodyTypes is the first translation pass: a linear walk that
// resolves every token-bearing operand and gathers the referenced types,
// deduplicated in first-appearance order. The caller realizes these types
// before the body bytes are reinterpreted.
func (p *Pickler) collectBodyTypes(m *Module, body *MethodBody) ([]*Type, error) {
	var (
		types []*Type
		seen  = make(map[*Type]bool)
	)
	code := body.Code
	pc := 0
	for pc < len(code) {
		op, opLen, err := decodeILOp(code, pc)
		if err != nil {
			return nil, err
		}
		pc += opLen
		switch {
		case op.Operand.IsMemberToken():
			if pc+4 > len(code) {
				return nil, fmt.Errorf("%s: truncated token operand: %w",
					op.Name, ErrUnknownILOpcode)
			}
			tok := Token(binary.LittleEndian.Uint32(code[pc : pc+4]))
			member, err := m.ResolveMember(tok, p.genericTypeContext, p.genericMethodContext)
			if err != nil {
				return nil, err
			}
			if t := declaringTypeOf(member); t != nil && !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
			pc += 4
		case op.Operand == InlineSwitch:
			if pc+4 > len(code) {
				return nil, fmt.Errorf("switch: truncated count: %w", ErrUnknownILOpcode)
			}
			n := int(binary.LittleEndian.Uint32(code[pc : pc+4]))
			pc += 4 + n*4
		default:
			pc += op.Operand.Size()
		}
		if pc > len(code) {
			return nil, fmt.Errorf("%s: operand past end of body: %w",
				op.Name, ErrUnknownILOpcode)
		}
	}
	return types, nil
}

// writeILBody is the second translation pass: every opcode is copied
// verbatim and token operands are replaced by recursive member references.
// The collected type set is written first so all referenced types are
// realized before the body is reinterpreted, then a terminator byte closes
// the body.
func (p *Pickler) writeILBody(m *Module, body *MethodBody) error {
	types, err := p.collectBodyTypes(m, body)
	if err != nil {
		return err
	}
	if err := p.w.WriteVarUint(uint64(len(types))); err != nil {
		return err
	}
	for _, t := range types {
		if err := p.writeType(t); err != nil {
			return err
		}
	}

	code := body.Code
	pc := 0
	for pc < len(code) {
		op, opLen, err := decodeILOp(code, pc)
		if err != nil {
			return err
		}
		if err := p.w.WriteBytes(code[pc : pc+opLen]); err != nil {
			return err
		}
		pc += opLen

		switch {
		case op.Operand.IsMemberToken():
			tok := Token(binary.LittleEndian.Uint32(code[pc : pc+4]))
			member, err := m.ResolveMember(tok, p.genericTypeContext, p.genericMethodContext)
			if err != nil {
				return err
			}
			if err := p.writeILMember(op.Operand, member); err != nil {
				return err
			}
			pc += 4

		case op.Operand == InlineString:
			tok := Token(binary.LittleEndian.Uint32(code[pc : pc+4]))
			s, err := m.ResolveString(tok)
			if err != nil {
				return err
			}
			if err := p.w.WriteNullableString(&s); err != nil {
				return err
			}
			pc += 4

		case op.Operand == InlineSwitch:
			n := int(binary.LittleEndian.Uint32(code[pc : pc+4]))
			if err := p.w.WriteBytes(code[pc : pc+4+n*4]); err != nil {
				return err
			}
			pc += 4 + n*4

		default:
			size := op.Operand.Size()
			if size > 0 {
				if err := p.w.WriteBytes(code[pc : pc+size]); err != nil {
					return err
				}
			}
			pc += size
		}
	}
	return p.w.WriteByte(ilBodyTerminator)
}

// writeILMember writes the member a token operand resolved to, using the
// reference writer matching the operand shape.
func (p *Pickler) writeILMember(operand OperandType, member interface{}) error {
	switch operand {
	case InlineType:
		t, ok := member.(*Type)
		if !ok {
			return fmt.Errorf("type operand resolved to %T: %w", member, ErrUnresolvedToken)
		}
		return p.writeType(t)
	case InlineField:
		f, ok := member.(*Field)
		if !ok {
			return fmt.Errorf("field operand resolved to %T: %w", member, ErrUnresolvedToken)
		}
		return p.writeField(f)
	case InlineMethod:
		mb, ok := member.(MethodBase)
		if !ok {
			return fmt.Errorf("method operand resolved to %T: %w", member, ErrUnresolvedToken)
		}
		return p.writeMethodBase(mb)
	case InlineTok:
		return p.writeMember(member)
	}
	return fmt.Errorf("operand %d is not a member token: %w", operand, ErrUnresolvedToken)
}
