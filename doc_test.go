package rexel_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	rexel "github.com/BrightkyEfoo/rexel-modern-sub000"
)

func ExampleClient_Get() {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":{"path":%q},"message":"ok"}`, r.URL.Path)
	}))
	defer backend.Close()

	client := rexel.New(rexel.WithBaseURL(backend.URL))
	resp, err := client.Get(context.Background(), "public/products")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(resp.Data), resp.Message)
	// Output: {"path":"/api/v1/public/products"} ok
}

func ExampleClient_Get_unauthenticated() {
	client := rexel.New()

	_, err := client.Get(context.Background(), "secured/orders")
	apiErr, _ := rexel.AsAPIError(err)
	fmt.Println(apiErr.Code, apiErr.Status)
	// Output: UNAUTHENTICATED 401
}

func ExampleGetPaginated() {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[1,2,3,4,5]`)
	}))
	defer backend.Close()

	client := rexel.New(rexel.WithBaseURL(backend.URL))
	page, err := rexel.GetPaginated[int](context.Background(), client, "public/numbers", 1, 2)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("%+v\n", page.Meta)
	// Output: {Total:5 PerPage:2 CurrentPage:1 LastPage:3}
}
