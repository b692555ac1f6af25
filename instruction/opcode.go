package instruction

// Opcode is a JVM instruction opcode.
type Opcode uint8

const (
	OpNop             Opcode = 0x00
	OpAconstNull      Opcode = 0x01
	OpIconstM1        Opcode = 0x02
	OpIconst0         Opcode = 0x03
	OpIconst1         Opcode = 0x04
	OpIconst2         Opcode = 0x05
	OpIconst3         Opcode = 0x06
	OpIconst4         Opcode = 0x07
	OpIconst5         Opcode = 0x08
	OpLconst0         Opcode = 0x09
	OpLconst1         Opcode = 0x0A
	OpFconst0         Opcode = 0x0B
	OpFconst1         Opcode = 0x0C
	OpFconst2         Opcode = 0x0D
	OpDconst0         Opcode = 0x0E
	OpDconst1         Opcode = 0x0F
	OpBipush          Opcode = 0x10
	OpSipush          Opcode = 0x11
	OpLdc             Opcode = 0x12
	OpLdcW            Opcode = 0x13
	OpLdc2W           Opcode = 0x14
	OpIload           Opcode = 0x15
	OpLload           Opcode = 0x16
	OpFload           Opcode = 0x17
	OpDload           Opcode = 0x18
	OpAload           Opcode = 0x19
	OpIload0          Opcode = 0x1A
	OpIload1          Opcode = 0x1B
	OpIload2          Opcode = 0x1C
	OpIload3          Opcode = 0x1D
	OpLload0          Opcode = 0x1E
	OpLload1          Opcode = 0x1F
	OpLload2          Opcode = 0x20
	OpLload3          Opcode = 0x21
	OpFload0          Opcode = 0x22
	OpFload1          Opcode = 0x23
	OpFload2          Opcode = 0x24
	OpFload3          Opcode = 0x25
	OpDload0          Opcode = 0x26
	OpDload1          Opcode = 0x27
	OpDload2          Opcode = 0x28
	OpDload3          Opcode = 0x29
	OpAload0          Opcode = 0x2A
	OpAload1          Opcode = 0x2B
	OpAload2          Opcode = 0x2C
	OpAload3          Opcode = 0x2D
	OpIaload          Opcode = 0x2E
	OpLaload          Opcode = 0x2F
	OpFaload          Opcode = 0x30
	OpDaload          Opcode = 0x31
	OpAaload          Opcode = 0x32
	OpBaload          Opcode = 0x33
	OpCaload          Opcode = 0x34
	OpSaload          Opcode = 0x35
	OpIstore          Opcode = 0x36
	OpLstore          Opcode = 0x37
	OpFstore          Opcode = 0x38
	OpDstore          Opcode = 0x39
	OpAstore          Opcode = 0x3A
	OpIstore0         Opcode = 0x3B
	OpIstore1         Opcode = 0x3C
	OpIstore2         Opcode = 0x3D
	OpIstore3         Opcode = 0x3E
	OpLstore0         Opcode = 0x3F
	OpLstore1         Opcode = 0x40
	OpLstore2         Opcode = 0x41
	OpLstore3         Opcode = 0x42
	OpFstore0         Opcode = 0x43
	OpFstore1         Opcode = 0x44
	OpFstore2         Opcode = 0x45
	OpFstore3         Opcode = 0x46
	OpDstore0         Opcode = 0x47
	OpDstore1         Opcode = 0x48
	OpDstore2         Opcode = 0x49
	OpDstore3         Opcode = 0x4A
	OpAstore0         Opcode = 0x4B
	OpAstore1         Opcode = 0x4C
	OpAstore2         Opcode = 0x4D
	OpAstore3         Opcode = 0x4E
	OpIastore         Opcode = 0x4F
	OpLastore         Opcode = 0x50
	OpFastore         Opcode = 0x51
	OpDastore         Opcode = 0x52
	OpAastore         Opcode = 0x53
	OpBastore         Opcode = 0x54
	OpCastore         Opcode = 0x55
	OpSastore         Opcode = 0x56
	OpPop             Opcode = 0x57
	OpPop2            Opcode = 0x58
	OpDup             Opcode = 0x59
	OpDupX1           Opcode = 0x5A
	OpDupX2           Opcode = 0x5B
	OpDup2            Opcode = 0x5C
	OpDup2X1          Opcode = 0x5D
	OpDup2X2          Opcode = 0x5E
	OpSwap            Opcode = 0x5F
	OpIadd            Opcode = 0x60
	OpLadd            Opcode = 0x61
	OpFadd            Opcode = 0x62
	OpDadd            Opcode = 0x63
	OpIsub            Opcode = 0x64
	OpLsub            Opcode = 0x65
	OpFsub            Opcode = 0x66
	OpDsub            Opcode = 0x67
	OpImul            Opcode = 0x68
	OpLmul            Opcode = 0x69
	OpFmul            Opcode = 0x6A
	OpDmul            Opcode = 0x6B
	OpIdiv            Opcode = 0x6C
	OpLdiv            Opcode = 0x6D
	OpFdiv            Opcode = 0x6E
	OpDdiv            Opcode = 0x6F
	OpIrem            Opcode = 0x70
	OpLrem            Opcode = 0x71
	OpFrem            Opcode = 0x72
	OpDrem            Opcode = 0x73
	OpIneg            Opcode = 0x74
	OpLneg            Opcode = 0x75
	OpFneg            Opcode = 0x76
	OpDneg            Opcode = 0x77
	OpIshl            Opcode = 0x78
	OpLshl            Opcode = 0x79
	OpIshr            Opcode = 0x7A
	OpLshr            Opcode = 0x7B
	OpIushr           Opcode = 0x7C
	OpLushr           Opcode = 0x7D
	OpIand            Opcode = 0x7E
	OpLand            Opcode = 0x7F
	OpIor             Opcode = 0x80
	OpLor             Opcode = 0x81
	OpIxor            Opcode = 0x82
	OpLxor            Opcode = 0x83
	OpIinc            Opcode = 0x84
	OpI2l             Opcode = 0x85
	OpI2f             Opcode = 0x86
	OpI2d             Opcode = 0x87
	OpL2i             Opcode = 0x88
	OpL2f             Opcode = 0x89
	OpL2d             Opcode = 0x8A
	OpF2i             Opcode = 0x8B
	OpF2l             Opcode = 0x8C
	OpF2d             Opcode = 0x8D
	OpD2i             Opcode = 0x8E
	OpD2l             Opcode = 0x8F
	OpD2f             Opcode = 0x90
	OpI2b             Opcode = 0x91
	OpI2c             Opcode = 0x92
	OpI2s             Opcode = 0x93
	OpLcmp            Opcode = 0x94
	OpFcmpl           Opcode = 0x95
	OpFcmpg           Opcode = 0x96
	OpDcmpl           Opcode = 0x97
	OpDcmpg           Opcode = 0x98
	OpIfeq            Opcode = 0x99
	OpIfne            Opcode = 0x9A
	OpIflt            Opcode = 0x9B
	OpIfge            Opcode = 0x9C
	OpIfgt            Opcode = 0x9D
	OpIfle            Opcode = 0x9E
	OpIfIcmpeq        Opcode = 0x9F
	OpIfIcmpne        Opcode = 0xA0
	OpIfIcmplt        Opcode = 0xA1
	OpIfIcmpge        Opcode = 0xA2
	OpIfIcmpgt        Opcode = 0xA3
	OpIfIcmple        Opcode = 0xA4
	OpIfAcmpeq        Opcode = 0xA5
	OpIfAcmpne        Opcode = 0xA6
	OpGoto            Opcode = 0xA7
	OpJsr             Opcode = 0xA8
	OpRet             Opcode = 0xA9
	OpTableswitch     Opcode = 0xAA
	OpLookupswitch    Opcode = 0xAB
	OpIreturn         Opcode = 0xAC
	OpLreturn         Opcode = 0xAD
	OpFreturn         Opcode = 0xAE
	OpDreturn         Opcode = 0xAF
	OpAreturn         Opcode = 0xB0
	OpReturn          Opcode = 0xB1
	OpGetstatic       Opcode = 0xB2
	OpPutstatic       Opcode = 0xB3
	OpGetfield        Opcode = 0xB4
	OpPutfield        Opcode = 0xB5
	OpInvokevirtual   Opcode = 0xB6
	OpInvokespecial   Opcode = 0xB7
	OpInvokestatic    Opcode = 0xB8
	OpInvokeinterface Opcode = 0xB9
	OpInvokedynamic   Opcode = 0xBA
	OpNew             Opcode = 0xBB
	OpNewarray        Opcode = 0xBC
	OpAnewarray       Opcode = 0xBD
	OpArraylength     Opcode = 0xBE
	OpAthrow          Opcode = 0xBF
	OpCheckcast       Opcode = 0xC0
	OpInstanceof      Opcode = 0xC1
	OpMonitorenter    Opcode = 0xC2
	OpMonitorexit     Opcode = 0xC3
	OpWide            Opcode = 0xC4
	OpMultianewarray  Opcode = 0xC5
	OpIfnull          Opcode = 0xC6
	OpIfnonnull       Opcode = 0xC7
	OpGotoW           Opcode = 0xC8
	OpJsrW            Opcode = 0xC9
)

var opcodeNames = [256]string{
	OpNop:             "nop",
	OpAconstNull:      "aconst_null",
	OpIconstM1:        "iconst_m1",
	OpIconst0:         "iconst_0",
	OpIconst1:         "iconst_1",
	OpIconst2:         "iconst_2",
	OpIconst3:         "iconst_3",
	OpIconst4:         "iconst_4",
	OpIconst5:         "iconst_5",
	OpLconst0:         "lconst_0",
	OpLconst1:         "lconst_1",
	OpFconst0:         "fconst_0",
	OpFconst1:         "fconst_1",
	OpFconst2:         "fconst_2",
	OpDconst0:         "dconst_0",
	OpDconst1:         "dconst_1",
	OpBipush:          "bipush",
	OpSipush:          "sipush",
	OpLdc:             "ldc",
	OpLdcW:            "ldc_w",
	OpLdc2W:           "ldc2_w",
	OpIload:           "iload",
	OpLload:           "lload",
	OpFload:           "fload",
	OpDload:           "dload",
	OpAload:           "aload",
	OpIload0:          "iload_0",
	OpIload1:          "iload_1",
	OpIload2:          "iload_2",
	OpIload3:          "iload_3",
	OpLload0:          "lload_0",
	OpLload1:          "lload_1",
	OpLload2:          "lload_2",
	OpLload3:          "lload_3",
	OpFload0:          "fload_0",
	OpFload1:          "fload_1",
	OpFload2:          "fload_2",
	OpFload3:          "fload_3",
	OpDload0:          "dload_0",
	OpDload1:          "dload_1",
	OpDload2:          "dload_2",
	OpDload3:          "dload_3",
	OpAload0:          "aload_0",
	OpAload1:          "aload_1",
	OpAload2:          "aload_2",
	OpAload3:          "aload_3",
	OpIaload:          "iaload",
	OpLaload:          "laload",
	OpFaload:          "faload",
	OpDaload:          "daload",
	OpAaload:          "aaload",
	OpBaload:          "baload",
	OpCaload:          "caload",
	OpSaload:          "saload",
	OpIstore:          "istore",
	OpLstore:          "lstore",
	OpFstore:          "fstore",
	OpDstore:          "dstore",
	OpAstore:          "astore",
	OpIstore0:         "istore_0",
	OpIstore1:         "istore_1",
	OpIstore2:         "istore_2",
	OpIstore3:         "istore_3",
	OpLstore0:         "lstore_0",
	OpLstore1:         "lstore_1",
	OpLstore2:         "lstore_2",
	OpLstore3:         "lstore_3",
	OpFstore0:         "fstore_0",
	OpFstore1:         "fstore_1",
	OpFstore2:         "fstore_2",
	OpFstore3:         "fstore_3",
	OpDstore0:         "dstore_0",
	OpDstore1:         "dstore_1",
	OpDstore2:         "dstore_2",
	OpDstore3:         "dstore_3",
	OpAstore0:         "astore_0",
	OpAstore1:         "astore_1",
	OpAstore2:         "astore_2",
	OpAstore3:         "astore_3",
	OpIastore:         "iastore",
	OpLastore:         "lastore",
	OpFastore:         "fastore",
	OpDastore:         "dastore",
	OpAastore:         "aastore",
	OpBastore:         "bastore",
	OpCastore:         "castore",
	OpSastore:         "sastore",
	OpPop:             "pop",
	OpPop2:            "pop2",
	OpDup:             "dup",
	OpDupX1:           "dup_x1",
	OpDupX2:           "dup_x2",
	OpDup2:            "dup2",
	OpDup2X1:          "dup2_x1",
	OpDup2X2:          "dup2_x2",
	OpSwap:            "swap",
	OpIadd:            "iadd",
	OpLadd:            "ladd",
	OpFadd:            "fadd",
	OpDadd:            "dadd",
	OpIsub:            "isub",
	OpLsub:            "lsub",
	OpFsub:            "fsub",
	OpDsub:            "dsub",
	OpImul:            "imul",
	OpLmul:            "lmul",
	OpFmul:            "fmul",
	OpDmul:            "dmul",
	OpIdiv:            "idiv",
	OpLdiv:            "ldiv",
	OpFdiv:            "fdiv",
	OpDdiv:            "ddiv",
	OpIrem:            "irem",
	OpLrem:            "lrem",
	OpFrem:            "frem",
	OpDrem:            "drem",
	OpIneg:            "ineg",
	OpLneg:            "lneg",
	OpFneg:            "fneg",
	OpDneg:            "dneg",
	OpIshl:            "ishl",
	OpLshl:            "lshl",
	OpIshr:            "ishr",
	OpLshr:            "lshr",
	OpIushr:           "iushr",
	OpLushr:           "lushr",
	OpIand:            "iand",
	OpLand:            "land",
	OpIor:             "ior",
	OpLor:             "lor",
	OpIxor:            "ixor",
	OpLxor:            "lxor",
	OpIinc:            "iinc",
	OpI2l:             "i2l",
	OpI2f:             "i2f",
	OpI2d:             "i2d",
	OpL2i:             "l2i",
	OpL2f:             "l2f",
	OpL2d:             "l2d",
	OpF2i:             "f2i",
	OpF2l:             "f2l",
	OpF2d:             "f2d",
	OpD2i:             "d2i",
	OpD2l:             "d2l",
	OpD2f:             "d2f",
	OpI2b:             "i2b",
	OpI2c:             "i2c",
	OpI2s:             "i2s",
	OpLcmp:            "lcmp",
	OpFcmpl:           "fcmpl",
	OpFcmpg:           "fcmpg",
	OpDcmpl:           "dcmpl",
	OpDcmpg:           "dcmpg",
	OpIfeq:            "ifeq",
	OpIfne:            "ifne",
	OpIflt:            "iflt",
	OpIfge:            "ifge",
	OpIfgt:            "ifgt",
	OpIfle:            "ifle",
	OpIfIcmpeq:        "if_icmpeq",
	OpIfIcmpne:        "if_icmpne",
	OpIfIcmplt:        "if_icmplt",
	OpIfIcmpge:        "if_icmpge",
	OpIfIcmpgt:        "if_icmpgt",
	OpIfIcmple:        "if_icmple",
	OpIfAcmpeq:        "if_acmpeq",
	OpIfAcmpne:        "if_acmpne",
	OpGoto:            "goto",
	OpJsr:             "jsr",
	OpRet:             "ret",
	OpTableswitch:     "tableswitch",
	OpLookupswitch:    "lookupswitch",
	OpIreturn:         "ireturn",
	OpLreturn:         "lreturn",
	OpFreturn:         "freturn",
	OpDreturn:         "dreturn",
	OpAreturn:         "areturn",
	OpReturn:          "return",
	OpGetstatic:       "getstatic",
	OpPutstatic:       "putstatic",
	OpGetfield:        "getfield",
	OpPutfield:        "putfield",
	OpInvokevirtual:   "invokevirtual",
	OpInvokespecial:   "invokespecial",
	OpInvokestatic:    "invokestatic",
	OpInvokeinterface: "invokeinterface",
	OpInvokedynamic:   "invokedynamic",
	OpNew:             "new",
	OpNewarray:        "newarray",
	OpAnewarray:       "anewarray",
	OpArraylength:     "arraylength",
	OpAthrow:          "athrow",
	OpCheckcast:       "checkcast",
	OpInstanceof:      "instanceof",
	OpMonitorenter:    "monitorenter",
	OpMonitorexit:     "monitorexit",
	OpWide:            "wide",
	OpMultianewarray:  "multianewarray",
	OpIfnull:          "ifnull",
	OpIfnonnull:       "ifnonnull",
	OpGotoW:           "goto_w",
	OpJsrW:            "jsr_w",
}

// Fixed stack effects in slots. Entries of -1 depend on the constant
// pool and are computed by PopCount and PushCount.
var stackPops = [256]int8{
	OpNop:             0,
	OpAconstNull:      0,
	OpIconstM1:        0,
	OpIconst0:         0,
	OpIconst1:         0,
	OpIconst2:         0,
	OpIconst3:         0,
	OpIconst4:         0,
	OpIconst5:         0,
	OpLconst0:         0,
	OpLconst1:         0,
	OpFconst0:         0,
	OpFconst1:         0,
	OpFconst2:         0,
	OpDconst0:         0,
	OpDconst1:         0,
	OpBipush:          0,
	OpSipush:          0,
	OpLdc:             0,
	OpLdcW:            0,
	OpLdc2W:           0,
	OpIload:           0,
	OpLload:           0,
	OpFload:           0,
	OpDload:           0,
	OpAload:           0,
	OpIload0:          0,
	OpIload1:          0,
	OpIload2:          0,
	OpIload3:          0,
	OpLload0:          0,
	OpLload1:          0,
	OpLload2:          0,
	OpLload3:          0,
	OpFload0:          0,
	OpFload1:          0,
	OpFload2:          0,
	OpFload3:          0,
	OpDload0:          0,
	OpDload1:          0,
	OpDload2:          0,
	OpDload3:          0,
	OpAload0:          0,
	OpAload1:          0,
	OpAload2:          0,
	OpAload3:          0,
	OpIaload:          2,
	OpLaload:          2,
	OpFaload:          2,
	OpDaload:          2,
	OpAaload:          2,
	OpBaload:          2,
	OpCaload:          2,
	OpSaload:          2,
	OpIstore:          1,
	OpLstore:          2,
	OpFstore:          1,
	OpDstore:          2,
	OpAstore:          1,
	OpIstore0:         1,
	OpIstore1:         1,
	OpIstore2:         1,
	OpIstore3:         1,
	OpLstore0:         2,
	OpLstore1:         2,
	OpLstore2:         2,
	OpLstore3:         2,
	OpFstore0:         1,
	OpFstore1:         1,
	OpFstore2:         1,
	OpFstore3:         1,
	OpDstore0:         2,
	OpDstore1:         2,
	OpDstore2:         2,
	OpDstore3:         2,
	OpAstore0:         1,
	OpAstore1:         1,
	OpAstore2:         1,
	OpAstore3:         1,
	OpIastore:         3,
	OpLastore:         4,
	OpFastore:         3,
	OpDastore:         4,
	OpAastore:         3,
	OpBastore:         3,
	OpCastore:         3,
	OpSastore:         3,
	OpPop:             1,
	OpPop2:            2,
	OpDup:             1,
	OpDupX1:           2,
	OpDupX2:           3,
	OpDup2:            2,
	OpDup2X1:          3,
	OpDup2X2:          4,
	OpSwap:            2,
	OpIadd:            2,
	OpLadd:            4,
	OpFadd:            2,
	OpDadd:            4,
	OpIsub:            2,
	OpLsub:            4,
	OpFsub:            2,
	OpDsub:            4,
	OpImul:            2,
	OpLmul:            4,
	OpFmul:            2,
	OpDmul:            4,
	OpIdiv:            2,
	OpLdiv:            4,
	OpFdiv:            2,
	OpDdiv:            4,
	OpIrem:            2,
	OpLrem:            4,
	OpFrem:            2,
	OpDrem:            4,
	OpIneg:            1,
	OpLneg:            2,
	OpFneg:            1,
	OpDneg:            2,
	OpIshl:            2,
	OpLshl:            3,
	OpIshr:            2,
	OpLshr:            3,
	OpIushr:           2,
	OpLushr:           3,
	OpIand:            2,
	OpLand:            4,
	OpIor:             2,
	OpLor:             4,
	OpIxor:            2,
	OpLxor:            4,
	OpIinc:            0,
	OpI2l:             1,
	OpI2f:             1,
	OpI2d:             1,
	OpL2i:             2,
	OpL2f:             2,
	OpL2d:             2,
	OpF2i:             1,
	OpF2l:             1,
	OpF2d:             1,
	OpD2i:             2,
	OpD2l:             2,
	OpD2f:             2,
	OpI2b:             1,
	OpI2c:             1,
	OpI2s:             1,
	OpLcmp:            4,
	OpFcmpl:           2,
	OpFcmpg:           2,
	OpDcmpl:           4,
	OpDcmpg:           4,
	OpIfeq:            1,
	OpIfne:            1,
	OpIflt:            1,
	OpIfge:            1,
	OpIfgt:            1,
	OpIfle:            1,
	OpIfIcmpeq:        2,
	OpIfIcmpne:        2,
	OpIfIcmplt:        2,
	OpIfIcmpge:        2,
	OpIfIcmpgt:        2,
	OpIfIcmple:        2,
	OpIfAcmpeq:        2,
	OpIfAcmpne:        2,
	OpGoto:            0,
	OpJsr:             0,
	OpRet:             0,
	OpTableswitch:     1,
	OpLookupswitch:    1,
	OpIreturn:         1,
	OpLreturn:         2,
	OpFreturn:         1,
	OpDreturn:         2,
	OpAreturn:         1,
	OpReturn:          0,
	OpGetstatic:       -1,
	OpPutstatic:       -1,
	OpGetfield:        -1,
	OpPutfield:        -1,
	OpInvokevirtual:   -1,
	OpInvokespecial:   -1,
	OpInvokestatic:    -1,
	OpInvokeinterface: -1,
	OpInvokedynamic:   -1,
	OpNew:             0,
	OpNewarray:        1,
	OpAnewarray:       1,
	OpArraylength:     1,
	OpAthrow:          1,
	OpCheckcast:       1,
	OpInstanceof:      1,
	OpMonitorenter:    1,
	OpMonitorexit:     1,
	OpWide:            0,
	OpMultianewarray:  -1,
	OpIfnull:          1,
	OpIfnonnull:       1,
	OpGotoW:           0,
	OpJsrW:            0,
}

var stackPushes = [256]int8{
	OpNop:             0,
	OpAconstNull:      1,
	OpIconstM1:        1,
	OpIconst0:         1,
	OpIconst1:         1,
	OpIconst2:         1,
	OpIconst3:         1,
	OpIconst4:         1,
	OpIconst5:         1,
	OpLconst0:         2,
	OpLconst1:         2,
	OpFconst0:         1,
	OpFconst1:         1,
	OpFconst2:         1,
	OpDconst0:         2,
	OpDconst1:         2,
	OpBipush:          1,
	OpSipush:          1,
	OpLdc:             1,
	OpLdcW:            1,
	OpLdc2W:           2,
	OpIload:           1,
	OpLload:           2,
	OpFload:           1,
	OpDload:           2,
	OpAload:           1,
	OpIload0:          1,
	OpIload1:          1,
	OpIload2:          1,
	OpIload3:          1,
	OpLload0:          2,
	OpLload1:          2,
	OpLload2:          2,
	OpLload3:          2,
	OpFload0:          1,
	OpFload1:          1,
	OpFload2:          1,
	OpFload3:          1,
	OpDload0:          2,
	OpDload1:          2,
	OpDload2:          2,
	OpDload3:          2,
	OpAload0:          1,
	OpAload1:          1,
	OpAload2:          1,
	OpAload3:          1,
	OpIaload:          1,
	OpLaload:          2,
	OpFaload:          1,
	OpDaload:          2,
	OpAaload:          1,
	OpBaload:          1,
	OpCaload:          1,
	OpSaload:          1,
	OpIstore:          0,
	OpLstore:          0,
	OpFstore:          0,
	OpDstore:          0,
	OpAstore:          0,
	OpIstore0:         0,
	OpIstore1:         0,
	OpIstore2:         0,
	OpIstore3:         0,
	OpLstore0:         0,
	OpLstore1:         0,
	OpLstore2:         0,
	OpLstore3:         0,
	OpFstore0:         0,
	OpFstore1:         0,
	OpFstore2:         0,
	OpFstore3:         0,
	OpDstore0:         0,
	OpDstore1:         0,
	OpDstore2:         0,
	OpDstore3:         0,
	OpAstore0:         0,
	OpAstore1:         0,
	OpAstore2:         0,
	OpAstore3:         0,
	OpIastore:         0,
	OpLastore:         0,
	OpFastore:         0,
	OpDastore:         0,
	OpAastore:         0,
	OpBastore:         0,
	OpCastore:         0,
	OpSastore:         0,
	OpPop:             0,
	OpPop2:            0,
	OpDup:             2,
	OpDupX1:           3,
	OpDupX2:           4,
	OpDup2:            4,
	OpDup2X1:          5,
	OpDup2X2:          6,
	OpSwap:            2,
	OpIadd:            1,
	OpLadd:            2,
	OpFadd:            1,
	OpDadd:            2,
	OpIsub:            1,
	OpLsub:            2,
	OpFsub:            1,
	OpDsub:            2,
	OpImul:            1,
	OpLmul:            2,
	OpFmul:            1,
	OpDmul:            2,
	OpIdiv:            1,
	OpLdiv:            2,
	OpFdiv:            1,
	OpDdiv:            2,
	OpIrem:            1,
	OpLrem:            2,
	OpFrem:            1,
	OpDrem:            2,
	OpIneg:            1,
	OpLneg:            2,
	OpFneg:            1,
	OpDneg:            2,
	OpIshl:            1,
	OpLshl:            2,
	OpIshr:            1,
	OpLshr:            2,
	OpIushr:           1,
	OpLushr:           2,
	OpIand:            1,
	OpLand:            2,
	OpIor:             1,
	OpLor:             2,
	OpIxor:            1,
	OpLxor:            2,
	OpIinc:            0,
	OpI2l:             2,
	OpI2f:             1,
	OpI2d:             2,
	OpL2i:             1,
	OpL2f:             1,
	OpL2d:             2,
	OpF2i:             1,
	OpF2l:             2,
	OpF2d:             2,
	OpD2i:             1,
	OpD2l:             2,
	OpD2f:             1,
	OpI2b:             1,
	OpI2c:             1,
	OpI2s:             1,
	OpLcmp:            1,
	OpFcmpl:           1,
	OpFcmpg:           1,
	OpDcmpl:           1,
	OpDcmpg:           1,
	OpIfeq:            0,
	OpIfne:            0,
	OpIflt:            0,
	OpIfge:            0,
	OpIfgt:            0,
	OpIfle:            0,
	OpIfIcmpeq:        0,
	OpIfIcmpne:        0,
	OpIfIcmplt:        0,
	OpIfIcmpge:        0,
	OpIfIcmpgt:        0,
	OpIfIcmple:        0,
	OpIfAcmpeq:        0,
	OpIfAcmpne:        0,
	OpGoto:            0,
	OpJsr:             1,
	OpRet:             0,
	OpTableswitch:     0,
	OpLookupswitch:    0,
	OpIreturn:         0,
	OpLreturn:         0,
	OpFreturn:         0,
	OpDreturn:         0,
	OpAreturn:         0,
	OpReturn:          0,
	OpGetstatic:       -1,
	OpPutstatic:       -1,
	OpGetfield:        -1,
	OpPutfield:        -1,
	OpInvokevirtual:   -1,
	OpInvokespecial:   -1,
	OpInvokestatic:    -1,
	OpInvokeinterface: -1,
	OpInvokedynamic:   -1,
	OpNew:             1,
	OpNewarray:        1,
	OpAnewarray:       1,
	OpArraylength:     1,
	OpAthrow:          0,
	OpCheckcast:       1,
	OpInstanceof:      1,
	OpMonitorenter:    0,
	OpMonitorexit:     0,
	OpWide:            0,
	OpMultianewarray:  1,
	OpIfnull:          0,
	OpIfnonnull:       0,
	OpGotoW:           0,
	OpJsrW:            1,
}

var validOpcodes = func() [256]bool {
	var valid [256]bool
	for op, name := range opcodeNames {
		valid[op] = name != ""
	}
	return valid
}()

func (op Opcode) String() string {
	if name := opcodeNames[op]; name != "" {
		return name
	}
	return "invalid"
}

func (op Opcode) IsValid() bool { return validOpcodes[op] }
