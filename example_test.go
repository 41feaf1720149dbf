package locate_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wanmail/locate"
	"github.com/wanmail/locate/htmlpage"
)

func ExampleGenerate() {
	for _, c := range locate.Generate("Email")[:3] {
		fmt.Println(c)
	}
	// Output:
	// #1 xpath: //input[@placeholder='Email']
	// #2 xpath: //input[@name='Email']
	// #3 xpath: //input[@id='Email']
}

func ExampleResolver_Resolve() {
	doc, err := htmlpage.ParseString(`<form><label>Email</label><input id="email"></form>`)
	if err != nil {
		panic(err)
	}
	r, err := locate.New(doc, locate.WithPresenceTimeout(10*time.Millisecond))
	if err != nil {
		panic(err)
	}

	m, err := r.Resolve(context.Background(), "Email")
	if err != nil {
		panic(err)
	}
	fmt.Println(m.Candidate, m.Candidate.Rule, m.Phase)

	_, err = r.Resolve(context.Background(), "Password")
	var nf *locate.NotFoundError
	if errors.As(err, &nf) {
		fmt.Println(len(nf.Candidates), "candidates tried for", nf.Field)
	}
	// Output:
	// #7 xpath: //label[text()='Email']/following::input[1] input.label.exact phase1-wait
	// 37 candidates tried for Password
}
