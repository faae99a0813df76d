package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/anonto42/yatube/backend/internal/auth"
	"github.com/anonto42/yatube/backend/internal/cache"
	"github.com/anonto42/yatube/backend/internal/media"
	"github.com/anonto42/yatube/backend/internal/models"
	"github.com/anonto42/yatube/backend/internal/render"
	"github.com/anonto42/yatube/backend/internal/repositories/memory"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gifBytes = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

// captureRenderer records the last page rendered and writes its name as the body.
type captureRenderer struct {
	mu   sync.Mutex
	name string
	data interface{}
}

func (r *captureRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name, r.data = name, data
	_, err := io.WriteString(w, name)
	return err
}

func (r *captureRenderer) last() (string, interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name, r.data
}

type stubVerifier struct{}

func (stubVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if idToken != "valid-token" {
		return nil, errors.New("bad token")
	}
	return &fbauth.Token{UID: "firebase-uid-1", Claims: map[string]interface{}{"email": "ann@example.com"}}, nil
}

type testApp struct {
	t        *testing.T
	e        *echo.Echo
	store    *memory.Store
	cache    *cache.MemoryStore
	sessions *auth.SessionManager
	views    *captureRenderer
}

// newApp wires the router over in-memory storage. With capture set, pages
// are recorded instead of rendered.
func newApp(t *testing.T, capture bool) *testApp {
	t.Helper()
	store := memory.New()
	a := &testApp{
		t:        t,
		store:    store,
		cache:    cache.NewMemoryStore(64, 20*time.Second),
		sessions: auth.NewSessionManager("test-secret", time.Hour),
	}
	e, err := New(Dependencies{
		Users:      store,
		Groups:     store,
		Posts:      store,
		Comments:   store,
		Follows:    store,
		Media:      media.NewDiskStore(t.TempDir()),
		IndexCache: a.cache,
		Sessions:   a.sessions,
		Firebase:   stubVerifier{},
	})
	require.NoError(t, err)
	if capture {
		a.views = &captureRenderer{}
		e.Renderer = a.views
	}
	a.e = e
	return a
}

func (a *testApp) user(name string) *models.User {
	a.t.Helper()
	u := &models.User{Username: name}
	require.NoError(a.t, a.store.CreateUser(context.Background(), u))
	return u
}

func (a *testApp) group(slug string) *models.Group {
	a.t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "test group"}
	require.NoError(a.t, a.store.CreateGroup(context.Background(), g))
	return g
}

func (a *testApp) post(author *models.User, group *models.Group, text string) *models.Post {
	a.t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(a.t, a.store.CreatePost(context.Background(), p))
	return p
}

func (a *testApp) request(req *http.Request, as *models.User) *httptest.ResponseRecorder {
	a.t.Helper()
	if as != nil {
		token, err := a.sessions.Issue(as)
		require.NoError(a.t, err)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(target string, as *models.User) *httptest.ResponseRecorder {
	return a.request(httptest.NewRequest(http.MethodGet, target, nil), as)
}

func (a *testApp) postForm(target string, as *models.User, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return a.request(req, as)
}

func (a *testApp) postMultipart(target string, as *models.User, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(a.t, w.WriteField(k, v))
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", "small.gif")
		require.NoError(a.t, err)
		_, err = fw.Write(image)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return a.request(req, as)
}

func (a *testApp) countPosts() int64 {
	a.t.Helper()
	n, err := a.store.CountPosts(context.Background(), models.PostFilter{})
	require.NoError(a.t, err)
	return n
}

func (a *testApp) storedPost(id uint) *models.Post {
	a.t.Helper()
	p, err := a.store.GetPostByID(context.Background(), id)
	require.NoError(a.t, err)
	return p
}

func TestPagesUseExpectedTemplates(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	group := a.group("g")
	post := a.post(author, group, "hello")

	tests := []struct {
		target   string
		as       *models.User
		template string
	}{
		{"/", nil, render.IndexPage},
		{"/group/g/", nil, render.GroupPage},
		{"/profile/author/", nil, render.ProfilePage},
		{fmt.Sprintf("/posts/%d/", post.ID), nil, render.DetailPage},
		{"/create/", author, render.PostFormPage},
		{fmt.Sprintf("/posts/%d/edit/", post.ID), author, render.PostFormPage},
		{"/follow/", author, render.FollowPage},
		{"/auth/login/", nil, render.LoginPage},
		{"/auth/signup/", nil, render.SignupPage},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := a.get(tt.target, tt.as)
			require.Equal(t, http.StatusOK, rec.Code)
			name, _ := a.views.last()
			assert.Equal(t, tt.template, name)
		})
	}
}

func TestUnknownObjectsAreNotFound(t *testing.T) {
	a := newApp(t, true)
	for _, target := range []string{"/group/missing/", "/profile/nobody/", "/posts/999/", "/posts/abc/", "/unexisting_page/"} {
		t.Run(target, func(t *testing.T) {
			rec := a.get(target, nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			name, data := a.views.last()
			assert.Equal(t, render.ErrorPage, name)
			assert.Equal(t, http.StatusNotFound, data.(render.ErrorView).Code)
		})
	}
}

func TestPrivatePagesRedirectAnonymousToLogin(t *testing.T) {
	a := newApp(t, true)
	post := a.post(a.user("author"), nil, "hello")

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/create/"},
		{http.MethodGet, fmt.Sprintf("/posts/%d/edit/", post.ID)},
		{http.MethodGet, "/follow/"},
		{http.MethodPost, "/profile/author/follow/"},
		{http.MethodPost, "/profile/author/unfollow/"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := a.request(httptest.NewRequest(tt.method, tt.target, nil), nil)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/auth/login/?next="+tt.target, rec.Header().Get(echo.HeaderLocation))
		})
	}
}

func TestListingsShowTenPostsPerPage(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	group := a.group("g")
	for i := 0; i < 13; i++ {
		a.post(author, group, fmt.Sprintf("post %d", i))
	}

	for _, target := range []string{"/", "/group/g/", "/profile/author/"} {
		t.Run(target, func(t *testing.T) {
			a.get(target, nil)
			_, first := a.views.last()
			a.get(target+"?page=2", nil)
			_, second := a.views.last()

			assert.Equal(t, 10, listing(t, first).Len())
			assert.Equal(t, 3, listing(t, second).Len())
		})
	}
}

func listing(t *testing.T, data interface{}) interface{ Len() int } {
	t.Helper()
	switch v := data.(type) {
	case render.IndexView:
		return v.Page
	case render.GroupView:
		return v.Page
	case render.ProfileView:
		return v.Page
	case render.FollowView:
		return v.Page
	}
	t.Fatalf("unexpected view %T", data)
	return nil
}

func TestEmptyGroupHasNoPosts(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	a.post(author, a.group("busy"), "elsewhere")
	a.group("empty")

	a.get("/group/empty/", nil)
	_, data := a.views.last()
	view := data.(render.GroupView)
	assert.Equal(t, "empty", view.Group.Slug)
	assert.Zero(t, view.Page.Len())
}

func TestProfileShowsFollowingState(t *testing.T) {
	a := newApp(t, true)
	a.user("author")
	reader := a.user("reader")
	a.postForm("/profile/author/follow/", reader, nil)

	a.get("/profile/author/", reader)
	_, data := a.views.last()
	assert.True(t, data.(render.ProfileView).Following)

	a.get("/profile/author/", nil)
	_, data = a.views.last()
	assert.False(t, data.(render.ProfileView).Following)
}

func TestCreatePost(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	group := a.group("g")
	before := a.countPosts()

	rec := a.postMultipart("/create/", author, map[string]string{
		"text":  "brand new",
		"group": fmt.Sprint(group.ID),
	}, gifBytes)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, before+1, a.countPosts())

	posts, err := a.store.ListPosts(context.Background(), models.PostFilter{}, 0, 1)
	require.NoError(t, err)
	created := posts[0]
	assert.Equal(t, "brand new", created.Text)
	require.NotNil(t, created.GroupID)
	assert.Equal(t, group.ID, *created.GroupID)
	require.NotEmpty(t, created.Image)

	img := a.get("/media/"+created.Image, nil)
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/gif", img.Header().Get(echo.HeaderContentType))
	assert.Equal(t, gifBytes, img.Body.Bytes())
}

func TestCreatePostWithInvalidFormRerenders(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")

	rec := a.postForm("/create/", author, url.Values{"text": {""}, "group": {"12345"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, a.countPosts())
	name, data := a.views.last()
	assert.Equal(t, render.PostFormPage, name)
	view := data.(render.PostFormView)
	assert.NotEmpty(t, view.Errors.Get("text"))
	assert.NotEmpty(t, view.Errors.Get("group"))
	assert.False(t, view.IsEdit)
}

func TestEditPostByAuthor(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	group := a.group("g")
	post := a.post(author, group, "before")
	before := a.countPosts()

	rec := a.postForm(fmt.Sprintf("/posts/%d/edit/", post.ID), author, url.Values{"text": {"after"}, "group": {""}})

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, fmt.Sprintf("/posts/%d/", post.ID), rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, before, a.countPosts())
	stored := a.storedPost(post.ID)
	assert.Equal(t, "after", stored.Text)
	assert.Nil(t, stored.GroupID)
}

func TestEditFormIsPrefilled(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	group := a.group("g")
	post := a.post(author, group, "original text")

	a.get(fmt.Sprintf("/posts/%d/edit/", post.ID), author)
	_, data := a.views.last()
	view := data.(render.PostFormView)
	assert.True(t, view.IsEdit)
	assert.Equal(t, "original text", view.Form.Text)
	assert.Equal(t, fmt.Sprint(group.ID), view.Form.Group)
	assert.Len(t, view.Groups, 1)
}

func TestEditByOtherUserRedirectsToDetail(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	intruder := a.user("intruder")
	post := a.post(author, nil, "untouched")
	detail := fmt.Sprintf("/posts/%d/", post.ID)

	rec := a.get(detail+"edit/", intruder)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, detail, rec.Header().Get(echo.HeaderLocation))

	rec = a.postForm(detail+"edit/", intruder, url.Values{"text": {"hacked"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, detail, rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, "untouched", a.storedPost(post.ID).Text)
}

func TestEditWithInvalidFormLeavesPostUnchanged(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	post := a.post(author, nil, "keep me")

	rec := a.postForm(fmt.Sprintf("/posts/%d/edit/", post.ID), author, url.Values{"text": {"  "}})

	assert.Equal(t, http.StatusOK, rec.Code)
	_, data := a.views.last()
	view := data.(render.PostFormView)
	assert.True(t, view.IsEdit)
	assert.NotEmpty(t, view.Errors.Get("text"))
	assert.Equal(t, "keep me", a.storedPost(post.ID).Text)
}

func TestDeletePost(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	post := a.post(author, nil, "doomed")
	target := fmt.Sprintf("/posts/%d/delete/", post.ID)

	rec := a.postForm(target, a.user("other"), nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.EqualValues(t, 1, a.countPosts())

	rec = a.postForm(target, author, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get(echo.HeaderLocation))
	assert.Zero(t, a.countPosts())
}

func TestAnonymousCommentRedirectsToLogin(t *testing.T) {
	a := newApp(t, true)
	post := a.post(a.user("author"), nil, "hello")
	target := fmt.Sprintf("/posts/%d/comment/", post.ID)

	rec := a.postForm(target, nil, url.Values{"text": {"drive-by"}})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next="+target, rec.Header().Get(echo.HeaderLocation))
	n, err := a.store.CountComments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommentIsShownOnDetail(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	reader := a.user("reader")
	post := a.post(author, nil, "hello")
	detail := fmt.Sprintf("/posts/%d/", post.ID)

	rec := a.postForm(detail+"comment/", reader, url.Values{"text": {"first!"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, detail, rec.Header().Get(echo.HeaderLocation))

	rec = a.postForm(detail+"comment/", reader, url.Values{"text": {""}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, detail, rec.Header().Get(echo.HeaderLocation))

	a.get(detail, nil)
	_, data := a.views.last()
	view := data.(render.DetailView)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "first!", view.Comments[0].Text)
	assert.Equal(t, "reader", view.Comments[0].Author.Username)

	assert.Equal(t, http.StatusNotFound, a.postForm("/posts/999/comment/", reader, url.Values{"text": {"x"}}).Code)
}

func TestFollowThenUnfollow(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	reader := a.user("reader")
	a.post(author, nil, "news")

	rec := a.postForm("/profile/author/follow/", reader, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/author/", rec.Header().Get(echo.HeaderLocation))
	a.postForm("/profile/author/follow/", reader, nil)
	assert.Equal(t, 1, a.store.CountFollows())

	rec = a.postForm("/profile/author/unfollow/", reader, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Zero(t, a.store.CountFollows())

	a.get("/follow/", reader)
	_, data := a.views.last()
	assert.Zero(t, data.(render.FollowView).Page.Len())
}

func TestFollowSelfIsIgnored(t *testing.T) {
	a := newApp(t, true)
	me := a.user("me")

	rec := a.get("/profile/me/follow/", me)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Zero(t, a.store.CountFollows())
}

func TestFeedShowsOnlyFollowedAuthors(t *testing.T) {
	a := newApp(t, true)
	author := a.user("author")
	follower := a.user("follower")
	stranger := a.user("stranger")
	a.postForm("/profile/author/follow/", follower, nil)
	post := a.post(author, nil, "fresh post")

	a.get("/follow/", follower)
	_, data := a.views.last()
	feed := data.(render.FollowView).Page
	require.Equal(t, 1, feed.Len())
	assert.Equal(t, post.ID, feed.Items[0].ID)

	a.get("/follow/", stranger)
	_, data = a.views.last()
	assert.Zero(t, data.(render.FollowView).Page.Len())
}

func TestIndexIsCachedUntilCleared(t *testing.T) {
	a := newApp(t, false)
	author := a.user("author")
	post := a.post(author, nil, "soon to be gone")

	first := a.get("/", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "soon to be gone")
	assert.Equal(t, "MISS", first.Header().Get(cache.HeaderCache))

	require.NoError(t, a.store.DeletePost(context.Background(), post.ID))

	cached := a.get("/", nil)
	assert.Equal(t, "HIT", cached.Header().Get(cache.HeaderCache))
	assert.Equal(t, first.Body.String(), cached.Body.String())

	require.NoError(t, a.cache.Clear(context.Background()))

	fresh := a.get("/", nil)
	assert.Equal(t, "MISS", fresh.Header().Get(cache.HeaderCache))
	assert.NotContains(t, fresh.Body.String(), "soon to be gone")
}

func TestIndexCacheIsPerViewer(t *testing.T) {
	a := newApp(t, false)
	leo := a.user("leo")

	anonymous := a.get("/", nil)
	signedIn := a.get("/", leo)

	assert.Equal(t, "MISS", signedIn.Header().Get(cache.HeaderCache))
	assert.NotContains(t, anonymous.Body.String(), "/profile/leo/")
	assert.Contains(t, signedIn.Body.String(), "/profile/leo/")
}

func TestSignupLoginLogout(t *testing.T) {
	a := newApp(t, true)

	rec := a.postForm("/auth/signup/", nil, url.Values{
		"username": {"newcomer"},
		"email":    {"new@example.com"},
		"password": {"long-enough-pass"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.NotEmpty(t, sessionCookie(rec))

	rec = a.postForm("/auth/login/", nil, url.Values{
		"username": {"newcomer"},
		"password": {"long-enough-pass"},
		"next":     {"/create/"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/create/", rec.Header().Get(echo.HeaderLocation))

	req := httptest.NewRequest(http.MethodGet, "/create/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: sessionCookie(rec)})
	create := httptest.NewRecorder()
	a.e.ServeHTTP(create, req)
	assert.Equal(t, http.StatusOK, create.Code)

	rec = a.postForm("/auth/login/", nil, url.Values{"username": {"newcomer"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	_, data := a.views.last()
	assert.NotEmpty(t, data.(render.LoginView).Error)

	rec = a.postForm("/auth/logout/", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Empty(t, sessionCookie(rec))
}

func TestLoginIgnoresForeignNext(t *testing.T) {
	a := newApp(t, true)
	signup := a.postForm("/auth/signup/", nil, url.Values{"username": {"leo"}, "password": {"long-enough-pass"}})
	require.Equal(t, http.StatusFound, signup.Code)

	rec := a.postForm("/auth/login/", nil, url.Values{
		"username": {"leo"},
		"password": {"long-enough-pass"},
		"next":     {"//evil.example.com/"},
	})
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}

func TestSignupRejectsTakenUsername(t *testing.T) {
	a := newApp(t, true)
	a.user("taken")

	rec := a.postForm("/auth/signup/", nil, url.Values{"username": {"taken"}, "password": {"long-enough-pass"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	_, data := a.views.last()
	assert.NotEmpty(t, data.(render.SignupView).Errors.Get("username"))
}

func TestSignupRejectsOverlongPassword(t *testing.T) {
	a := newApp(t, true)

	rec := a.postForm("/auth/signup/", nil, url.Values{"username": {"longpw"}, "password": {strings.Repeat("a", 80)}})

	assert.Equal(t, http.StatusOK, rec.Code)
	name, data := a.views.last()
	assert.Equal(t, render.SignupPage, name)
	assert.NotEmpty(t, data.(render.SignupView).Errors.Get("password"))
	assert.Empty(t, sessionCookie(rec))
}

func TestFirebaseLogin(t *testing.T) {
	a := newApp(t, true)

	rec := a.postForm("/auth/firebase/", nil, url.Values{"id_token": {"valid-token"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.NotEmpty(t, sessionCookie(rec))

	user, err := a.store.GetUserByFirebaseUID(context.Background(), "firebase-uid-1")
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)

	rec = a.postForm("/auth/firebase/", nil, url.Values{"id_token": {"forged"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	a := newApp(t, true)
	rec := a.get("/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestIndexCacheKey(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=2", nil), httptest.NewRecorder())
	assert.Equal(t, "index:/?page=2", IndexCacheKey(c))

	c.Set("user", &models.User{ID: 7})
	assert.Equal(t, "index:/?page=2:user:7", IndexCacheKey(c))
}

func sessionCookie(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c.Value
		}
	}
	return ""
}
