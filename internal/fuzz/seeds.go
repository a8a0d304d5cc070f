package fuzztests

import (
	"testing"
)

// maxSeedBytes bounds seeds and fuzz inputs.
const maxSeedBytes = 64 << 10

// snippets are short samples of the built-in languages.
var snippets = []string{
	"",
	"\n\n\n",
	"#include <stdio.h>\nint main(void) { return 0; }\n",
	"def f(x):\n    return x\n",
	"public class A { public static void main(String[] args) {} }\n",
	"<?php echo $x; ?>\n",
	"my $x = shift;\nprint \"$x\\n\";\n",
	"object Main extends App { println(\"hi\") }\n",
	"@interface Foo : NSObject\n@end\n",
	"const x: number = 1;\nexport default x;\n",
	"class Foo < Bar\n  def baz; end\nend\n",
	"\t \r\n\f\v",
	"a,b,c\n",
	"a\u00a0b\u3000c\u0085d\x1ce\n",
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range snippets {
		f.Add([]byte(s))
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return src
	}
	return src[:maxSeedBytes]
}
